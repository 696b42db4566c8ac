package config

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"

	"github.com/cnnpruning/mayo/internal/dotpath"
)

// Typed accessors over the well-known document sections. These expect a
// resolved configuration; on an unresolved one they may see marker strings
// and report a type error.

// ModelName returns model.name.
func (c *Config) ModelName() (string, error) {
	return c.stringAt("model.name")
}

// LabelOffset returns the class-index shift implied by the dataset's
// background-class declaration: +1 when the task uses a background class
// the dataset does not have, -1 in the opposite case, 0 otherwise.
func (c *Config) LabelOffset() (int, error) {
	// An absent background_class section means no shift in either direction.
	use, err := c.boolOrFalseAt("dataset.task.background_class.use")
	if err != nil {
		return 0, err
	}
	has, err := c.boolOrFalseAt("dataset.task.background_class.has")
	if err != nil {
		return 0, err
	}
	return boolToInt(use) - boolToInt(has), nil
}

// NumClasses returns the effective class count: the declared
// dataset.task.num_classes adjusted by the label offset.
func (c *Config) NumClasses() (int, error) {
	declared, err := c.intAt("dataset.task.num_classes")
	if err != nil {
		return 0, err
	}
	offset, err := c.LabelOffset()
	if err != nil {
		return 0, err
	}
	return declared + offset, nil
}

// ImageShape returns the preprocessing target shape as (height, width,
// channels).
func (c *Config) ImageShape() (int, int, int, error) {
	h, err := c.intAt("dataset.preprocess.shape.height")
	if err != nil {
		return 0, 0, 0, err
	}
	w, err := c.intAt("dataset.preprocess.shape.width")
	if err != nil {
		return 0, 0, 0, err
	}
	ch, err := c.intAt("dataset.preprocess.shape.channels")
	if err != nil {
		return 0, 0, 0, err
	}
	return h, w, ch, nil
}

func (c *Config) stringAt(path string) (string, error) {
	v, err := c.Get(path)
	if err != nil {
		return "", err
	}
	v, _ = v.Unmark()
	if v.IsNull() || v.Type() != cty.String {
		return "", fmt.Errorf("%s is not a string", path)
	}
	return v.AsString(), nil
}

func (c *Config) boolOrFalseAt(path string) (bool, error) {
	b, err := c.boolAt(path)
	var notFound *dotpath.NotFoundError
	var traverse *dotpath.TraverseError
	if errors.As(err, &notFound) || errors.As(err, &traverse) {
		return false, nil
	}
	return b, err
}

func (c *Config) boolAt(path string) (bool, error) {
	v, err := c.Get(path)
	if err != nil {
		return false, err
	}
	v, _ = v.Unmark()
	if v.IsNull() || v.Type() != cty.Bool {
		return false, fmt.Errorf("%s is not a boolean", path)
	}
	return v.True(), nil
}

func (c *Config) intAt(path string) (int, error) {
	v, err := c.Get(path)
	if err != nil {
		return 0, err
	}
	v, _ = v.Unmark()
	if v.IsNull() || v.Type() != cty.Number {
		return 0, fmt.Errorf("%s is not a number", path)
	}
	i, acc := v.AsBigFloat().Int64()
	if acc != big.Exact {
		return 0, fmt.Errorf("%s is not an integer", path)
	}
	return int(i), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
