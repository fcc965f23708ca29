/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: filter_test.go
Description: Tests for the quick filter.
*/

package tabular_test

import (
	"testing"

	"github.com/kleascm/tablemend/pkg/tabular"
	"github.com/stretchr/testify/assert"
)

func TestQuickFilter(t *testing.T) {
	model := tabular.NewCodec(nil).Parse("name,city,qty\nAda,London,3\nBob,Paris,12\nCyd,london,5", tabular.Comma).Model

	assert.Equal(t, []int{0, 1, 2}, tabular.QuickFilter(model, ""))
	assert.Equal(t, []int{0, 2}, tabular.QuickFilter(model, "LONDON"))
	assert.Equal(t, []int{2}, tabular.QuickFilter(model, "london cyd"))
	assert.Equal(t, []int{1}, tabular.QuickFilter(model, "12"))
	assert.Empty(t, tabular.QuickFilter(model, "berlin"))
}
