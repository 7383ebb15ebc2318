package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"club-space-backend/pkg/models"
	"club-space-backend/pkg/teams"
)

const teamColumns = `id, name, leader_id, status, created_at`

func scanTeam(sc interface{ Scan(...interface{}) error }) (*models.Team, error) {
	var t models.Team
	if err := sc.Scan(&t.ID, &t.Name, &t.LeaderID, &t.Status, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

const memberColumns = `id, team_id, user_id, role, status, invited_at, confirmed_at`

func scanMember(sc interface{ Scan(...interface{}) error }) (*models.TeamMember, error) {
	var m models.TeamMember
	var confirmedAt sql.NullTime
	if err := sc.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.Status, &m.InvitedAt, &confirmedAt); err != nil {
		return nil, err
	}
	m.ConfirmedAt = nullTimePtr(confirmedAt)
	return &m, nil
}

const invitationColumns = `id, team_id, inviter_id, invitee_id, status, created_at, responded_at`

func scanInvitation(sc interface{ Scan(...interface{}) error }) (*models.TeamInvitation, error) {
	var inv models.TeamInvitation
	var respondedAt sql.NullTime
	if err := sc.Scan(&inv.ID, &inv.TeamID, &inv.InviterID, &inv.InviteeID, &inv.Status, &inv.CreatedAt, &respondedAt); err != nil {
		return nil, err
	}
	inv.RespondedAt = nullTimePtr(respondedAt)
	return &inv, nil
}

// CreateTeamWithInvitations 在一个事务内写入小队、成员与邀请
func (d *SQLDatabase) CreateTeamWithInvitations(ctx context.Context, rec *models.NewTeamRecords) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		t := rec.Team
		if _, err := d.exec(ctx, tx, `INSERT INTO teams (`+teamColumns+`) VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.Name, t.LeaderID, t.Status, t.CreatedAt); err != nil {
			return classify("insert team", err)
		}
		for _, m := range rec.Members {
			if _, err := d.exec(ctx, tx, `INSERT INTO team_members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				m.ID, m.TeamID, m.UserID, m.Role, m.Status, m.InvitedAt, m.ConfirmedAt); err != nil {
				return classify("insert team member", err)
			}
		}
		for _, inv := range rec.Invitations {
			if _, err := d.exec(ctx, tx, `INSERT INTO team_invitations (`+invitationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				inv.ID, inv.TeamID, inv.InviterID, inv.InviteeID, inv.Status, inv.CreatedAt, inv.RespondedAt); err != nil {
				return classify("insert team invitation", err)
			}
		}
		return nil
	})
}

func (d *SQLDatabase) listMembers(ctx context.Context, q queryer, teamID string) ([]models.TeamMember, error) {
	rows, err := d.query(ctx, q, `SELECT `+memberColumns+` FROM team_members WHERE team_id = ? ORDER BY role, invited_at`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	var out []models.TeamMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// RespondToInvitation 接受/拒绝邀请，接受后若全员确认则激活小队。全部在一个事务内完成。
func (d *SQLDatabase) RespondToInvitation(ctx context.Context, resp models.InvitationResponse) (*models.InvitationOutcome, error) {
	policy := teams.NewPolicy(resp.TeamSize)
	var outcome *models.InvitationOutcome

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		inv, err := scanInvitation(d.queryRow(ctx, tx, `SELECT `+invitationColumns+` FROM team_invitations WHERE id = ?`, resp.InvitationID))
		if isNoRows(err) {
			return fmt.Errorf("invitation %s: %w", resp.InvitationID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get invitation: %w", err)
		}

		// 锁住小队行，保证并发接受时只有一个事务看到“全员确认”
		team, err := scanTeam(d.queryRow(ctx, tx, `SELECT `+teamColumns+` FROM teams WHERE id = ?`+d.forUpdate(), inv.TeamID))
		if isNoRows(err) {
			return fmt.Errorf("team %s: %w", inv.TeamID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get team: %w", err)
		}

		members, err := d.listMembers(ctx, tx, team.ID)
		if err != nil {
			return err
		}
		if err := policy.CheckRespond(*team, members, *inv, resp.InviteeID); err != nil {
			return err
		}

		updated, _ := teams.ApplyResponse(*inv, members, resp.Accept, resp.RespondedAt)
		res, err := d.exec(ctx, tx, `UPDATE team_invitations SET status = ?, responded_at = ?
			WHERE id = ? AND invitee_id = ? AND status = 'pending'`,
			updated.Status, resp.RespondedAt, inv.ID, resp.InviteeID)
		if err != nil {
			return fmt.Errorf("update invitation: %w", err)
		}
		if err := affectedOne(res, teams.ErrInvitationNotPending); err != nil {
			return err
		}

		if resp.Accept {
			res, err = d.exec(ctx, tx, `UPDATE team_members SET status = 'confirmed', confirmed_at = ?
				WHERE team_id = ? AND user_id = ? AND status = 'pending'`, resp.RespondedAt, team.ID, resp.InviteeID)
		} else {
			res, err = d.exec(ctx, tx, `UPDATE team_members SET status = 'declined'
				WHERE team_id = ? AND user_id = ? AND status = 'pending'`, team.ID, resp.InviteeID)
		}
		if err != nil {
			return fmt.Errorf("update team member: %w", err)
		}
		if err := affectedOne(res, teams.ErrMemberNotFound); err != nil {
			return err
		}

		outcome = &models.InvitationOutcome{Invitation: updated, TeamID: team.ID, TeamStatus: team.Status}
		if !resp.Accept {
			return nil
		}

		members, err = d.listMembers(ctx, tx, team.ID)
		if err != nil {
			return err
		}
		if err := policy.CheckMembers(members); err != nil {
			return err
		}
		if !policy.ShouldActivate(members) {
			return nil
		}

		res, err = d.exec(ctx, tx, `UPDATE teams SET status = 'active' WHERE id = ? AND status = 'pending'`, team.ID)
		if err != nil {
			return fmt.Errorf("activate team: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			outcome.TeamActivated = true
			outcome.TeamStatus = models.TeamActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// ListPendingInvitations 用户待处理的小队邀请，最新在前
func (d *SQLDatabase) ListPendingInvitations(ctx context.Context, userID string) ([]models.TeamNotification, error) {
	rows, err := d.query(ctx, d.db, `SELECT i.id, i.team_id, i.inviter_id, i.status, i.created_at,
			t.id, t.name, t.leader_id,
			COALESCE(p.id, ''), COALESCE(p.display_name, ''), COALESCE(p.email, '')
		FROM team_invitations i
		JOIN teams t ON t.id = i.team_id
		LEFT JOIN profiles p ON p.id = i.inviter_id
		WHERE i.invitee_id = ? AND i.status = 'pending'
		ORDER BY i.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []models.TeamNotification{}
	for rows.Next() {
		var n models.TeamNotification
		if err := rows.Scan(&n.ID, &n.TeamID, &n.InviterID, &n.Status, &n.CreatedAt,
			&n.Team.ID, &n.Team.Name, &n.Team.LeaderID,
			&n.Inviter.ID, &n.Inviter.DisplayName, &n.Inviter.Email); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GetTeam 获取小队
func (d *SQLDatabase) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	t, err := scanTeam(d.queryRow(ctx, d.db, `SELECT `+teamColumns+` FROM teams WHERE id = ?`, id))
	if isNoRows(err) {
		return nil, fmt.Errorf("team %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	return t, nil
}

// ListUserTeams 用户参与的小队及成员资料
func (d *SQLDatabase) ListUserTeams(ctx context.Context, userID string) ([]models.TeamWithMembers, error) {
	rows, err := d.query(ctx, d.db, `SELECT `+teamColumns+` FROM teams
		WHERE id IN (SELECT team_id FROM team_members WHERE user_id = ?)
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	var out []models.TeamWithMembers
	index := map[string]int{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan team: %w", err)
		}
		index[t.ID] = len(out)
		out = append(out, models.TeamWithMembers{Team: *t, Members: []models.TeamMemberDetail{}})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return []models.TeamWithMembers{}, nil
	}

	ids := make([]interface{}, 0, len(out))
	for _, t := range out {
		ids = append(ids, t.ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	mrows, err := d.query(ctx, d.db, `SELECT m.id, m.team_id, m.user_id, m.role, m.status, m.invited_at, m.confirmed_at,
			COALESCE(p.display_name, ''), COALESCE(p.email, '')
		FROM team_members m LEFT JOIN profiles p ON p.id = m.user_id
		WHERE m.team_id IN (`+placeholders+`)
		ORDER BY m.role, m.invited_at`, ids...)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var md models.TeamMemberDetail
		var confirmedAt sql.NullTime
		if err := mrows.Scan(&md.ID, &md.TeamID, &md.UserID, &md.Role, &md.Status, &md.InvitedAt, &confirmedAt,
			&md.DisplayName, &md.Email); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		md.ConfirmedAt = nullTimePtr(confirmedAt)
		if i, ok := index[md.TeamID]; ok {
			out[i].Members = append(out[i].Members, md)
		}
	}
	return out, mrows.Err()
}

// DisbandTeam 条件更新：只有队长能把 pending 小队解散
func (d *SQLDatabase) DisbandTeam(ctx context.Context, teamID, leaderID string) error {
	res, err := d.exec(ctx, d.db, `UPDATE teams SET status = 'disbanded'
		WHERE id = ? AND leader_id = ? AND status = 'pending'`, teamID, leaderID)
	if err != nil {
		return fmt.Errorf("disband team: %w", err)
	}
	return affectedOne(res, teams.ErrTeamNotPending)
}

const meetingColumns = `id, title, description, meeting_date, meeting_time, location, organizer_id,
	meeting_type, team1_id, team2_id, status, created_at`

func scanMeeting(sc interface{ Scan(...interface{}) error }) (*models.TeamMeeting, error) {
	var m models.TeamMeeting
	var date, clock string
	var team1, team2 sql.NullString
	if err := sc.Scan(&m.ID, &m.Title, &m.Description, &date, &clock, &m.Location, &m.OrganizerID,
		&m.MeetingType, &team1, &team2, &m.Status, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.MeetingDate = normalizeDate(date)
	m.MeetingTime = normalizeTime(clock)
	m.Team1ID = nullString(team1)
	m.Team2ID = nullString(team2)
	return &m, nil
}

func nullableID(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}

// CreateMeeting 写入见面活动
func (d *SQLDatabase) CreateMeeting(ctx context.Context, m *models.TeamMeeting) error {
	_, err := d.exec(ctx, d.db, `INSERT INTO team_meetings (`+meetingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Title, m.Description, m.MeetingDate, m.MeetingTime, m.Location, m.OrganizerID,
		m.MeetingType, nullableID(m.Team1ID), nullableID(m.Team2ID), m.Status, m.CreatedAt)
	return classify("create meeting", err)
}

// ListMeetings 见面活动列表，日期新的在前
func (d *SQLDatabase) ListMeetings(ctx context.Context) ([]models.TeamMeeting, error) {
	rows, err := d.query(ctx, d.db, `SELECT `+meetingColumns+` FROM team_meetings
		ORDER BY meeting_date DESC, meeting_time DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()
	out := []models.TeamMeeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
