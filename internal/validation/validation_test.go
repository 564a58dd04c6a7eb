package validation

import (
	"testing"

	"todolist/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type form struct {
	Name  string `form:"name" validate:"required,max=5"`
	Notes string `validate:"max=3"`
	Code  string `validate:"omitempty,alpha"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   form
		field   string
		message string
	}{
		{name: "Required", input: form{}, field: "name", message: "is required"},
		{name: "Max", input: form{Name: "toolong"}, field: "name", message: "must be at most 5 characters"},
		{name: "FallsBackToFieldName", input: form{Name: "ok", Notes: "long"}, field: "Notes", message: "must be at most 3 characters"},
		{name: "OtherTag", input: form{Name: "ok", Notes: "ab", Code: "x1"}, field: "Code", message: "failed alpha check"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(tc.input)
			var validationErr *models.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.field, validationErr.Field)
			assert.Equal(t, tc.message, validationErr.Message)
		})
	}

	assert.NoError(t, Struct(form{Name: "ok"}))
}
