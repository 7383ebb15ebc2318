package teams

import (
	"errors"
	"strings"

	"club-space-backend/pkg/models"
)

var (
	ErrInvalidMeetingType = errors.New("meeting type must be team_vs_team or team_vs_individuals")
	ErrMeetingTeams       = errors.New("team_vs_team needs two different teams, team_vs_individuals exactly one")
	ErrTeamNotActive      = errors.New("only active teams can join a meeting")
)

// ParseMeetingType 空值按 team_vs_team 处理
func ParseMeetingType(s string) (models.MeetingType, error) {
	switch models.MeetingType(strings.ToLower(strings.TrimSpace(s))) {
	case "", models.MeetingTeamVsTeam:
		return models.MeetingTeamVsTeam, nil
	case models.MeetingTeamVsIndividuals:
		return models.MeetingTeamVsIndividuals, nil
	}
	return "", ErrInvalidMeetingType
}

// CheckMeetingTeams 校验见面活动的参与小队。
// team_vs_team 需要两支不同的小队；team_vs_individuals 只有 team1，另外四人单独招募。
// 只有人数已满的 active 小队可以参加。
func CheckMeetingTeams(kind models.MeetingType, team1, team2 *models.Team) error {
	switch kind {
	case models.MeetingTeamVsTeam:
		if team1 == nil || team2 == nil || team1.ID == team2.ID {
			return ErrMeetingTeams
		}
	case models.MeetingTeamVsIndividuals:
		if team1 == nil || team2 != nil {
			return ErrMeetingTeams
		}
	default:
		return ErrInvalidMeetingType
	}
	for _, t := range []*models.Team{team1, team2} {
		if t != nil && t.Status != models.TeamActive {
			return ErrTeamNotActive
		}
	}
	return nil
}
