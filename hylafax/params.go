package hylafax

import (
	"errors"
	"strconv"
)

type param struct {
	Tag   string
	Value string
}

// JobParams is an ordered list of job parameters, sent to hfaxd as one
// JPARM command per entry. A tag may appear multiple times (DOCUMENT does
// for multi-file jobs); order is preserved as given.
type JobParams struct {
	params []param
}

// NewJobParams creates an empty parameter list.
func NewJobParams() *JobParams {
	return &JobParams{}
}

// GetAll returns a slice containing all values for given tag.
func (p *JobParams) GetAll(tag string) []string {
	var result []string
	for _, param := range p.params {
		if param.Tag == tag {
			result = append(result, param.Value)
		}
	}
	return result
}

// GetString returns the value of the first parameter with given tag as string.
func (p *JobParams) GetString(tag string) string {
	for _, param := range p.params {
		if param.Tag == tag {
			return param.Value
		}
	}
	return ""
}

// GetInt looks up the value of the first parameter with given tag
// and returns the parsed value as int.
func (p *JobParams) GetInt(tag string) (int, error) {
	if str := p.GetString(tag); str != "" {
		return strconv.Atoi(str)
	}
	return 0, errors.New("tag not found")
}

// Set replaces the value of the first found param with given value.
// If the param does not exist, it is appended.
func (p *JobParams) Set(tag string, value string) {
	for i, param := range p.params {
		if param.Tag == tag {
			p.params[i].Value = value
			return
		}
	}
	p.Add(tag, value)
}

// Add adds a param with given tag and value. If the
// tag already exists, a second one is added.
func (p *JobParams) Add(tag string, value string) {
	p.params = append(p.params, param{tag, value})
}

// SetInt formats value as decimal and sets it.
func (p *JobParams) SetInt(tag string, value int) {
	p.Set(tag, strconv.Itoa(value))
}

// SetBool sets the parameter to the "YES"/"NO" form hfaxd expects.
func (p *JobParams) SetBool(tag string, value bool) {
	if value {
		p.Set(tag, "YES")
	} else {
		p.Set(tag, "NO")
	}
}

// Each calls fn for every parameter in order.
func (p *JobParams) Each(fn func(tag, value string) error) error {
	for _, param := range p.params {
		if err := fn(param.Tag, param.Value); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of parameters.
func (p *JobParams) Len() int {
	return len(p.params)
}
