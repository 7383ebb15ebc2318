// Package teams 小队状态机：创建、邀请回复、激活与解散的规则
package teams

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"club-space-backend/pkg/models"
)

// DefaultSize 队长 + 3 名成员
const DefaultSize = 4

var (
	ErrInvalidTeamSize      = errors.New("wrong number of team members")
	ErrDuplicateInvitee     = errors.New("invitees must be distinct")
	ErrLeaderInvited        = errors.New("leader cannot invite themselves")
	ErrEmptyName            = errors.New("team name is required")
	ErrNotInvitee           = errors.New("invitation belongs to another user")
	ErrInvitationNotPending = errors.New("invitation already answered")
	ErrTeamNotPending       = errors.New("team is no longer pending")
	ErrLeaderCount          = errors.New("team must have exactly one leader")
	ErrMemberNotFound       = errors.New("team member not found")
	ErrNotLeader            = errors.New("only the team leader can do this")
	ErrInvalidResponse      = errors.New("response must be accepted or declined")
)

// Policy 小队规则，Size 为包含队长在内的人数
type Policy struct {
	Size int
}

// NewPolicy size 小于 2 时使用默认值
func NewPolicy(size int) Policy {
	if size < 2 {
		size = DefaultSize
	}
	return Policy{Size: size}
}

// InviteeCount 需要邀请的人数
func (p Policy) InviteeCount() int {
	return p.Size - 1
}

// ValidateCreate 校验创建参数
func (p Policy) ValidateCreate(name, leaderID string, inviteeIDs []string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(inviteeIDs) != p.InviteeCount() {
		return fmt.Errorf("%w: need %d invitees, got %d", ErrInvalidTeamSize, p.InviteeCount(), len(inviteeIDs))
	}
	seen := make(map[string]bool, len(inviteeIDs))
	for _, id := range inviteeIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty invitee id", ErrInvalidTeamSize)
		}
		if id == leaderID {
			return ErrLeaderInvited
		}
		if seen[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateInvitee, id)
		}
		seen[id] = true
	}
	return nil
}

// PlanCreate 生成创建小队时需要写入的全部记录
func (p Policy) PlanCreate(name, leaderID string, inviteeIDs []string, now time.Time, newID func() string) (*models.NewTeamRecords, error) {
	if err := p.ValidateCreate(name, leaderID, inviteeIDs); err != nil {
		return nil, err
	}

	team := models.Team{
		ID:        newID(),
		Name:      strings.TrimSpace(name),
		LeaderID:  leaderID,
		Status:    models.TeamPending,
		CreatedAt: now,
	}
	confirmedAt := now
	rec := &models.NewTeamRecords{
		Team: team,
		Members: []models.TeamMember{{
			ID:          newID(),
			TeamID:      team.ID,
			UserID:      leaderID,
			Role:        models.TeamRoleLeader,
			Status:      models.MemberConfirmed,
			InvitedAt:   now,
			ConfirmedAt: &confirmedAt,
		}},
	}
	for _, id := range inviteeIDs {
		rec.Members = append(rec.Members, models.TeamMember{
			ID:        newID(),
			TeamID:    team.ID,
			UserID:    id,
			Role:      models.TeamRoleMember,
			Status:    models.MemberPending,
			InvitedAt: now,
		})
		rec.Invitations = append(rec.Invitations, models.TeamInvitation{
			ID:        newID(),
			TeamID:    team.ID,
			InviterID: leaderID,
			InviteeID: id,
			Status:    models.InvitationPending,
			CreatedAt: now,
		})
	}
	return rec, nil
}

// CheckMembers 校验成员不变量：恰好一名队长，人数等于 Size
func (p Policy) CheckMembers(members []models.TeamMember) error {
	leaders := 0
	for _, m := range members {
		if m.Role == models.TeamRoleLeader {
			leaders++
		}
	}
	if leaders != 1 {
		return fmt.Errorf("%w: found %d", ErrLeaderCount, leaders)
	}
	if len(members) != p.Size {
		return fmt.Errorf("%w: team has %d members, want %d", ErrInvalidTeamSize, len(members), p.Size)
	}
	return nil
}

// CheckRespond 校验邀请回复前的状态
func (p Policy) CheckRespond(team models.Team, members []models.TeamMember, inv models.TeamInvitation, userID string) error {
	if inv.InviteeID != userID {
		return ErrNotInvitee
	}
	if inv.Status != models.InvitationPending {
		return ErrInvitationNotPending
	}
	if team.Status != models.TeamPending {
		return ErrTeamNotPending
	}
	if err := p.CheckMembers(members); err != nil {
		return err
	}
	if _, ok := FindMember(members, userID); !ok {
		return ErrMemberNotFound
	}
	return nil
}

// ShouldActivate 人数满且全部确认时返回 true
func (p Policy) ShouldActivate(members []models.TeamMember) bool {
	if len(members) != p.Size {
		return false
	}
	for _, m := range members {
		if m.Status != models.MemberConfirmed {
			return false
		}
	}
	return true
}

// CanDisband 只有队长可以解散 pending 状态的小队
func (p Policy) CanDisband(team models.Team, userID string) error {
	if team.LeaderID != userID {
		return ErrNotLeader
	}
	if team.Status != models.TeamPending {
		return ErrTeamNotPending
	}
	return nil
}

// FindMember returns the index of the member row for userID.
func FindMember(members []models.TeamMember, userID string) (int, bool) {
	for i, m := range members {
		if m.UserID == userID {
			return i, true
		}
	}
	return -1, false
}

// ApplyResponse 在内存中应用回复，返回更新后的邀请与成员列表
func ApplyResponse(inv models.TeamInvitation, members []models.TeamMember, accept bool, at time.Time) (models.TeamInvitation, []models.TeamMember) {
	out := make([]models.TeamMember, len(members))
	copy(out, members)

	respondedAt := at
	inv.RespondedAt = &respondedAt
	if accept {
		inv.Status = models.InvitationAccepted
	} else {
		inv.Status = models.InvitationDeclined
	}

	if i, ok := FindMember(out, inv.InviteeID); ok {
		if accept {
			confirmedAt := at
			out[i].Status = models.MemberConfirmed
			out[i].ConfirmedAt = &confirmedAt
		} else {
			out[i].Status = models.MemberDeclined
		}
	}
	return inv, out
}

// ParseResponse 解析回复；兼容旧客户端的 "rejected"
func ParseResponse(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accepted", "accept":
		return true, nil
	case "declined", "decline", "rejected", "reject":
		return false, nil
	}
	return false, ErrInvalidResponse
}
