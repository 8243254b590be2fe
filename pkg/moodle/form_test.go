package moodle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFormFlattensNestedValues(t *testing.T) {
	var missing *int
	form := EncodeForm(Params{
		"users": []Params{{
			"username": "ada",
			"tags":     []string{"x", "y"},
			"skip":     nil,
		}},
		"options": map[string]any{"ids": []int64{7, 9}},
		"count":   5,
		"flag":    true,
		"ratio":   0.5,
		"nothing": missing,
	})

	assert.Equal(t, "ada", form.Get("users[0][username]"))
	assert.Equal(t, "x", form.Get("users[0][tags][0]"))
	assert.Equal(t, "y", form.Get("users[0][tags][1]"))
	assert.Equal(t, "7", form.Get("options[ids][0]"))
	assert.Equal(t, "9", form.Get("options[ids][1]"))
	assert.Equal(t, "5", form.Get("count"))
	assert.Equal(t, "true", form.Get("flag"))
	assert.Equal(t, "0.5", form.Get("ratio"))

	// One entry per leaf scalar; nil leaves are absent.
	assert.Len(t, form, 8)
	for key, values := range form {
		require.Len(t, values, 1, key)
	}
	assert.NotContains(t, form, "users[0][skip]")
	assert.NotContains(t, form, "nothing")
}

func TestEncodeFormStructUsesJSONNames(t *testing.T) {
	type enrolment struct {
		RoleID   int    `json:"roleid"`
		UserID   int64  `json:"userid"`
		Note     string `json:"note,omitempty"`
		CourseID int64  `json:"courseid"`
	}

	form := EncodeForm(Params{"enrolments": []enrolment{{RoleID: 5, UserID: 12, CourseID: 34}}})

	assert.Equal(t, "5", form.Get("enrolments[0][roleid]"))
	assert.Equal(t, "12", form.Get("enrolments[0][userid]"))
	assert.Equal(t, "34", form.Get("enrolments[0][courseid]"))
	assert.Len(t, form, 3)
}

func TestEncodeFormEmptyContainers(t *testing.T) {
	form := EncodeForm(Params{"list": []string{}, "record": map[string]any{}, "nilList": []string(nil)})
	assert.Empty(t, form)
}

func TestEncodeFormFloatPrecision(t *testing.T) {
	form := EncodeForm(Params{"single": float32(0.1), "double": 0.1, "grade": float32(7.25)})
	assert.Equal(t, "0.1", form.Get("single"))
	assert.Equal(t, "0.1", form.Get("double"))
	assert.Equal(t, "7.25", form.Get("grade"))
}
