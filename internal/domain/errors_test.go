package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorsWrapSentinel(t *testing.T) {
	t.Parallel()

	for _, err := range []error{
		ErrInvalidEnumValue,
		ErrInvalidEmail,
		ErrEmptyTitle,
		ErrNegativeHours,
	} {
		assert.ErrorIs(t, err, ErrValidation, "%v must match ErrValidation", err)
	}
}

func TestParseErrorsMatchValidation(t *testing.T) {
	t.Parallel()

	_, err := ParseTaskStatus("LOST")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseTaskPriority("URGENT")
	assert.ErrorIs(t, err, ErrValidation)
}
