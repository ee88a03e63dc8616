package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stafflink/tender-pipeline/internal/types"
)

func TestInsertIfAbsent_RefusesInvalidRecord(t *testing.T) {
	s := &TenderStore{}

	inserted, err := s.InsertIfAbsent(context.Background(), &types.ValidatedTender{
		Record: types.TenderRecord{ExternalID: "T-1"},
		Errors: []string{"closing date is in the past"},
	})

	assert.False(t, inserted)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation errors")
}
