package teams

import (
	"testing"

	"club-space-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMeetingType(t *testing.T) {
	kind, err := ParseMeetingType("")
	require.NoError(t, err)
	assert.Equal(t, models.MeetingTeamVsTeam, kind)

	kind, err = ParseMeetingType(" Team_vs_Individuals ")
	require.NoError(t, err)
	assert.Equal(t, models.MeetingTeamVsIndividuals, kind)

	_, err = ParseMeetingType("solo")
	assert.ErrorIs(t, err, ErrInvalidMeetingType)
}

func TestCheckMeetingTeams(t *testing.T) {
	active := &models.Team{ID: "t1", Status: models.TeamActive}
	other := &models.Team{ID: "t2", Status: models.TeamActive}
	pending := &models.Team{ID: "t3", Status: models.TeamPending}
	disbanded := &models.Team{ID: "t4", Status: models.TeamDisbanded}

	tests := []struct {
		name  string
		kind  models.MeetingType
		team1 *models.Team
		team2 *models.Team
		want  error
	}{
		{"two active teams", models.MeetingTeamVsTeam, active, other, nil},
		{"one team vs individuals", models.MeetingTeamVsIndividuals, active, nil, nil},
		{"same team twice", models.MeetingTeamVsTeam, active, active, ErrMeetingTeams},
		{"missing opponent", models.MeetingTeamVsTeam, active, nil, ErrMeetingTeams},
		{"no team at all", models.MeetingTeamVsIndividuals, nil, nil, ErrMeetingTeams},
		{"individuals with second team", models.MeetingTeamVsIndividuals, active, other, ErrMeetingTeams},
		{"pending opponent", models.MeetingTeamVsTeam, active, pending, ErrTeamNotActive},
		{"disbanded host", models.MeetingTeamVsIndividuals, disbanded, nil, ErrTeamNotActive},
		{"unknown kind", models.MeetingType("solo"), active, nil, ErrInvalidMeetingType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMeetingTeams(tt.kind, tt.team1, tt.team2)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
