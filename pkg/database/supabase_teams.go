package database

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"club-space-backend/pkg/models"
	"club-space-backend/pkg/teams"
)

// CreateTeamWithInvitations 通过 RPC 在一个事务内写入小队、成员与邀请
func (db *SupabaseDatabase) CreateTeamWithInvitations(ctx context.Context, rec *models.NewTeamRecords) error {
	payload := map[string]interface{}{
		"p_team":        rec.Team,
		"p_members":     rec.Members,
		"p_invitations": rec.Invitations,
	}
	if _, err := db.makeRequest(ctx, http.MethodPost, "/rpc/create_team_with_invitations", payload); err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

// RespondToInvitation 通过 RPC 回复邀请；激活判断在数据库事务中完成
func (db *SupabaseDatabase) RespondToInvitation(ctx context.Context, resp models.InvitationResponse) (*models.InvitationOutcome, error) {
	payload := map[string]interface{}{
		"p_invitation_id": resp.InvitationID,
		"p_invitee_id":    resp.InviteeID,
		"p_accept":        resp.Accept,
		"p_team_size":     teams.NewPolicy(resp.TeamSize).Size,
		"p_responded_at":  resp.RespondedAt,
	}
	data, err := db.makeRequest(ctx, http.MethodPost, "/rpc/respond_team_invitation", payload)
	if err != nil {
		return nil, fmt.Errorf("respond invitation: %w", err)
	}
	var outcome models.InvitationOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return nil, fmt.Errorf("decode invitation outcome: %w", err)
	}
	return &outcome, nil
}

// ListPendingInvitations 待处理邀请（带小队与邀请人资料）
func (db *SupabaseDatabase) ListPendingInvitations(ctx context.Context, userID string) ([]models.TeamNotification, error) {
	rows := []models.TeamNotification{}
	q := url.Values{
		"invitee_id": {eq(userID)},
		"status":     {eq(string(models.InvitationPending))},
		"select": {"id,team_id,inviter_id,status,created_at," +
			"teams(id,name,leader_id)," +
			"inviter:profiles!team_invitations_inviter_id_fkey(id,display_name,email)"},
		"order": {"created_at.desc"},
	}
	if err := db.getRows(ctx, "team_invitations", q, &rows); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return rows, nil
}

// GetTeam 获取小队
func (db *SupabaseDatabase) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	var rows []models.Team
	if err := db.getRows(ctx, "teams", url.Values{"id": {eq(id)}, "select": {"*"}}, &rows); err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("team %s: %w", id, ErrNotFound)
	}
	return &rows[0], nil
}

// ListUserTeams 用户参与的小队及成员
func (db *SupabaseDatabase) ListUserTeams(ctx context.Context, userID string) ([]models.TeamWithMembers, error) {
	var memberships []struct {
		TeamID string `json:"team_id"`
	}
	if err := db.getRows(ctx, "team_members", url.Values{"user_id": {eq(userID)}, "select": {"team_id"}}, &memberships); err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	if len(memberships) == 0 {
		return []models.TeamWithMembers{}, nil
	}
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.TeamID)
	}

	var rows []struct {
		models.Team
		TeamMembers []struct {
			models.TeamMember
			Profiles *struct {
				DisplayName string `json:"display_name"`
				Email       string `json:"email"`
			} `json:"profiles"`
		} `json:"team_members"`
	}
	q := url.Values{
		"id":     {inList(ids)},
		"select": {"*,team_members(*,profiles(display_name,email))"},
		"order":  {"created_at.desc"},
	}
	if err := db.getRows(ctx, "teams", q, &rows); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	out := make([]models.TeamWithMembers, 0, len(rows))
	for _, row := range rows {
		t := models.TeamWithMembers{Team: row.Team, Members: []models.TeamMemberDetail{}}
		for _, m := range row.TeamMembers {
			md := models.TeamMemberDetail{TeamMember: m.TeamMember}
			if m.Profiles != nil {
				md.DisplayName = m.Profiles.DisplayName
				md.Email = m.Profiles.Email
			}
			t.Members = append(t.Members, md)
		}
		// 队长在前
		sort.SliceStable(t.Members, func(i, j int) bool {
			return t.Members[i].Role == models.TeamRoleLeader && t.Members[j].Role != models.TeamRoleLeader
		})
		out = append(out, t)
	}
	return out, nil
}

// DisbandTeam 条件更新：只有队长能解散 pending 小队
func (db *SupabaseDatabase) DisbandTeam(ctx context.Context, teamID, leaderID string) error {
	q := url.Values{"id": {eq(teamID)}, "leader_id": {eq(leaderID)}, "status": {eq(string(models.TeamPending))}}
	n, err := db.mutateRows(ctx, http.MethodPatch, "teams", q, map[string]string{"status": string(models.TeamDisbanded)})
	if err != nil {
		return fmt.Errorf("disband team: %w", err)
	}
	if n == 0 {
		return teams.ErrTeamNotPending
	}
	return nil
}

// CreateMeeting 写入见面活动；空的 team2_id 不会序列化，存为 NULL
func (db *SupabaseDatabase) CreateMeeting(ctx context.Context, m *models.TeamMeeting) error {
	if _, err := db.makeRequest(ctx, http.MethodPost, "/team_meetings", m); err != nil {
		return fmt.Errorf("create meeting: %w", err)
	}
	return nil
}

// ListMeetings 见面活动列表，日期新的在前
func (db *SupabaseDatabase) ListMeetings(ctx context.Context) ([]models.TeamMeeting, error) {
	rows := []models.TeamMeeting{}
	q := url.Values{
		"select": {"*"},
		"order":  {"meeting_date.desc,meeting_time.desc,created_at.desc"},
	}
	if err := db.getRows(ctx, "team_meetings", q, &rows); err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	for i := range rows {
		rows[i].MeetingDate = normalizeDate(rows[i].MeetingDate)
		rows[i].MeetingTime = normalizeTime(rows[i].MeetingTime)
	}
	return rows, nil
}
