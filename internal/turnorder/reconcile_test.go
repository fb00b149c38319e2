package turnorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/chitfund/internal/models"
)

func roster() []models.PlannedMember {
	return []models.PlannedMember{
		{Name: "Asha", Email: "asha@example.com", Position: 1},
		{Name: "Ben", Email: "ben@example.com", Position: 2},
		{Name: "Chen", Email: "chen@example.com", Position: 3},
	}
}

func TestPickPosition(t *testing.T) {
	tests := []struct {
		name     string
		joined   []models.Member
		email    string
		wantPos  int
		wantSlot string
	}{
		{
			name:     "exact email match",
			email:    "  BEN@example.com ",
			wantPos:  2,
			wantSlot: "Ben",
		},
		{
			name:     "matched slot taken falls back to first free slot",
			joined:   []models.Member{{UserID: "x", TurnPosition: 2}},
			email:    "ben@example.com",
			wantPos:  1,
			wantSlot: "Asha",
		},
		{
			name:     "unknown email takes first free slot",
			joined:   []models.Member{{UserID: "x", TurnPosition: 1}},
			email:    "dana@example.com",
			wantPos:  2,
			wantSlot: "Ben",
		},
		{
			name: "roster full assigns past the end",
			joined: []models.Member{
				{UserID: "a", TurnPosition: 1},
				{UserID: "b", TurnPosition: 2},
				{UserID: "c", TurnPosition: 3},
			},
			email:   "dana@example.com",
			wantPos: 4,
		},
		{
			name: "skips positions already used past the end",
			joined: []models.Member{
				{UserID: "a", TurnPosition: 1},
				{UserID: "b", TurnPosition: 2},
				{UserID: "c", TurnPosition: 3},
				{UserID: "d", TurnPosition: 4},
			},
			email:   "eve@example.com",
			wantPos: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PickPosition(roster(), tt.joined, tt.email)
			assert.Equal(t, tt.wantPos, got.Position)
			if tt.wantSlot == "" {
				assert.Nil(t, got.Slot)
				return
			}
			require.NotNil(t, got.Slot)
			assert.Equal(t, tt.wantSlot, got.Slot.Name)
		})
	}
}

func TestReconcile(t *testing.T) {
	joined := []models.Member{
		{UserID: "u-ben", TurnPosition: 2, InvitedEmail: "ben@example.com"},
		{UserID: "u-chen", TurnPosition: 7, InvitedEmail: "Chen@Example.com"},
		{UserID: "u-zed", TurnPosition: 9, InvitedEmail: "zed@example.com"},
	}

	r := Reconcile(roster(), joined)

	require.Len(t, r.Matched, 2)
	assert.Equal(t, "u-ben", r.Matched[0].Member.UserID)
	assert.Equal(t, 2, r.Matched[0].Planned.Position)
	assert.Equal(t, "u-chen", r.Matched[1].Member.UserID)
	assert.Equal(t, "Chen", r.Matched[1].Planned.Name)

	require.Len(t, r.UnmatchedPlanned, 1)
	assert.Equal(t, "Asha", r.UnmatchedPlanned[0].Name)

	require.Len(t, r.UnmatchedJoined, 1)
	assert.Equal(t, "u-zed", r.UnmatchedJoined[0].UserID)
}

func TestReconcilePositionWinsOverEmail(t *testing.T) {
	// Ben accepted late and was placed in Asha's free slot.
	joined := []models.Member{{UserID: "u-ben", TurnPosition: 1, InvitedEmail: "ben@example.com"}}

	r := Reconcile(roster(), joined)

	require.Len(t, r.Matched, 1)
	assert.Equal(t, "Asha", r.Matched[0].Planned.Name)
	assert.Len(t, r.UnmatchedPlanned, 2)
	assert.Empty(t, r.UnmatchedJoined)
}
