package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestSubmissionTextColumnsAreUnbounded(t *testing.T) {
	s, err := schema.Parse(&Submission{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	assert.Equal(t, "submissions", s.Table)

	for _, column := range []string{"name", "phone", "business_title", "reg_no", "address_district", "address_mandal", "address_area"} {
		field := s.LookUpField(column)
		require.NotNil(t, field, column)
		assert.Equal(t, schema.DataType("text"), field.DataType, column)
		assert.Zero(t, field.Size, column)
	}
}
