package services

import (
	"context"
	"fmt"

	"club-space-backend/pkg/booking"
	"club-space-backend/pkg/database"
	"club-space-backend/pkg/logger"
	"club-space-backend/pkg/models"
	"club-space-backend/pkg/teams"

	"github.com/sirupsen/logrus"
)

// CreateTeamRequest 创建小队请求；成员可用ID指定，也可用名字或邮箱前缀查找
type CreateTeamRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	LeaderID    string   `json:"leader_id,omitempty"`
	MemberIDs   []string `json:"member_ids,omitempty" validate:"omitempty,dive,required"`
	MemberNames []string `json:"member_names,omitempty" validate:"omitempty,dive,required"`
}

// RespondRequest 回复邀请请求
type RespondRequest struct {
	InvitationID string `json:"invitation_id" validate:"required"`
	UserID       string `json:"user_id,omitempty"`
	Response     string `json:"response" validate:"required"`
}

// RespondResult 回复结果
type RespondResult struct {
	Outcome *models.InvitationOutcome
	Message string
}

// CreateMeetingRequest 创建见面活动请求
type CreateMeetingRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=1000"`
	MeetingDate string `json:"meeting_date" validate:"required,datetime=2006-01-02"`
	MeetingTime string `json:"meeting_time" validate:"required"`
	Location    string `json:"location,omitempty" validate:"max=200"`
	MeetingType string `json:"meeting_type,omitempty"`
	Team1ID     string `json:"team1_id,omitempty"`
	Team2ID     string `json:"team2_id,omitempty"`
}

// TeamService 小队创建、邀请回复与解散
type TeamService struct {
	base
	db     database.DatabaseInterface
	policy teams.Policy
}

// NewTeamService 创建小队服务
func NewTeamService(db database.DatabaseInterface, policy teams.Policy) *TeamService {
	return &TeamService{base: newBase(), db: db, policy: policy}
}

// Policy 当前小队规则
func (s *TeamService) Policy() teams.Policy {
	return s.policy
}

// Create 解析成员后，以一个原子单元写入小队、成员和邀请
func (s *TeamService) Create(ctx context.Context, leaderID string, req CreateTeamRequest) (*models.Team, error) {
	invitees := append([]string{}, req.MemberIDs...)
	for _, name := range req.MemberNames {
		id, err := s.ResolveUser(ctx, name)
		if err != nil {
			return nil, err
		}
		invitees = append(invitees, id)
	}

	rec, err := s.policy.PlanCreate(req.Name, leaderID, invitees, s.now().UTC(), s.newID)
	if err != nil {
		return nil, err
	}
	for _, id := range invitees {
		if _, err := s.db.GetProfile(ctx, id); err != nil {
			return nil, fmt.Errorf("invitee %s: %w", id, err)
		}
	}
	if err := s.db.CreateTeamWithInvitations(ctx, rec); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"team_id":  rec.Team.ID,
		"invitees": len(rec.Invitations),
	}).Info("👥 Team created")
	return &rec.Team, nil
}

// ResolveUser 先按显示名包含匹配，没有结果再按邮箱前缀精确匹配；必须恰好一个
func (s *TeamService) ResolveUser(ctx context.Context, query string) (string, error) {
	query = clean(query)
	if query == "" {
		return "", fmt.Errorf("%w: empty name", ErrInviteeNotFound)
	}
	matches, err := lookupProfiles(ctx, s.db, query, 2)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %q", ErrInviteeNotFound, query)
	case 1:
		return matches[0].ID, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrAmbiguousInvitee, query)
	}
}

// Respond 接受或拒绝邀请；最后一人接受时小队激活
func (s *TeamService) Respond(ctx context.Context, userID string, req RespondRequest) (*RespondResult, error) {
	accept, err := teams.ParseResponse(req.Response)
	if err != nil {
		return nil, err
	}
	outcome, err := s.db.RespondToInvitation(ctx, models.InvitationResponse{
		InvitationID: req.InvitationID,
		InviteeID:    userID,
		Accept:       accept,
		TeamSize:     s.policy.Size,
		RespondedAt:  s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"invitation_id": req.InvitationID,
		"team_id":       outcome.TeamID,
	})
	result := &RespondResult{Outcome: outcome, Message: "Invitation declined successfully"}
	if accept {
		result.Message = "Invitation accepted successfully"
	}
	if outcome.TeamActivated {
		log.Info("✅ Team activated")
		result.Message += "; team is now active"
	} else {
		log.WithField("status", outcome.Invitation.Status).Info("✉️ Invitation answered")
	}
	return result, nil
}

// Notifications 当前用户待处理的小队邀请
func (s *TeamService) Notifications(ctx context.Context, userID string) ([]models.TeamNotification, error) {
	return s.db.ListPendingInvitations(ctx, userID)
}

// ListTeams 当前用户所在的小队
func (s *TeamService) ListTeams(ctx context.Context, userID string) ([]models.TeamWithMembers, error) {
	return s.db.ListUserTeams(ctx, userID)
}

// Disband 队长解散仍在 pending 的小队
func (s *TeamService) Disband(ctx context.Context, userID, teamID string) error {
	team, err := s.db.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if err := s.policy.CanDisband(*team, userID); err != nil {
		return err
	}
	if err := s.db.DisbandTeam(ctx, teamID, userID); err != nil {
		return err
	}
	logger.FromContext(ctx).WithField("team_id", teamID).Info("🪓 Team disbanded")
	return nil
}

// CreateMeeting 创建见面活动；参与的小队必须已激活
func (s *TeamService) CreateMeeting(ctx context.Context, organizerID string, req CreateMeetingRequest) (*models.TeamMeeting, error) {
	title := clean(req.Title)
	if title == "" {
		return nil, ErrEmptyMeetingTitle
	}
	day, err := booking.ParseDate(req.MeetingDate)
	if err != nil {
		return nil, err
	}
	clock, err := booking.NormalizeClock(req.MeetingTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMeetingTime, req.MeetingTime)
	}
	kind, err := teams.ParseMeetingType(req.MeetingType)
	if err != nil {
		return nil, err
	}

	team1, err := s.optionalTeam(ctx, req.Team1ID)
	if err != nil {
		return nil, err
	}
	team2, err := s.optionalTeam(ctx, req.Team2ID)
	if err != nil {
		return nil, err
	}
	if err := teams.CheckMeetingTeams(kind, team1, team2); err != nil {
		return nil, err
	}

	m := &models.TeamMeeting{
		ID:          s.newID(),
		Title:       title,
		Description: clean(req.Description),
		MeetingDate: day,
		MeetingTime: clock,
		Location:    clean(req.Location),
		OrganizerID: organizerID,
		MeetingType: kind,
		Team1ID:     team1.ID,
		Status:      models.MeetingScheduled,
		CreatedAt:   s.now().UTC(),
	}
	if team2 != nil {
		m.Team2ID = team2.ID
	}
	if err := s.db.CreateMeeting(ctx, m); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"meeting_id":   m.ID,
		"meeting_type": m.MeetingType,
		"date":         m.MeetingDate,
	}).Info("🤝 Team meeting scheduled")
	return m, nil
}

// ListMeetings 见面活动列表
func (s *TeamService) ListMeetings(ctx context.Context) ([]models.TeamMeeting, error) {
	return s.db.ListMeetings(ctx)
}

func (s *TeamService) optionalTeam(ctx context.Context, id string) (*models.Team, error) {
	id = clean(id)
	if id == "" {
		return nil, nil
	}
	return s.db.GetTeam(ctx, id)
}
