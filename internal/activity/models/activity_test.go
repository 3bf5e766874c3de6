package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "genkan/pkg/domain-errors"
)

func TestValidateCategories(t *testing.T) {
	t.Run("accepts one to five distinct categories", func(t *testing.T) {
		assert.NoError(t, ValidateCategories([]Category{CategoryStudy}))
		assert.NoError(t, ValidateCategories([]Category{
			CategoryStudy, CategoryReading, CategoryProgramming, CategoryCraft, CategoryGame,
		}))
	})

	t.Run("rejects empty, oversized, duplicate, and unknown sets", func(t *testing.T) {
		err := ValidateCategories(nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		err = ValidateCategories([]Category{
			CategoryStudy, CategoryReading, CategoryProgramming,
			CategoryCraft, CategoryGame, CategorySports,
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		err = ValidateCategories([]Category{CategoryStudy, CategoryStudy})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		err = ValidateCategories([]Category{Category("napping")})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestValidateNotes(t *testing.T) {
	assert.NoError(t, ValidateNotes("", ""))
	assert.NoError(t, ValidateNotes(strings.Repeat("あ", 100), strings.Repeat("あ", 200)))

	err := ValidateNotes(strings.Repeat("あ", 101), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	err = ValidateNotes("", strings.Repeat("あ", 201))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
