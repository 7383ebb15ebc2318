package models

import "time"

type TeamStatus string

const (
	TeamPending   TeamStatus = "pending"
	TeamActive    TeamStatus = "active"
	TeamDisbanded TeamStatus = "disbanded"
)

type TeamMemberRole string

const (
	TeamRoleLeader TeamMemberRole = "leader"
	TeamRoleMember TeamMemberRole = "member"
)

type TeamMemberStatus string

const (
	MemberPending   TeamMemberStatus = "pending"
	MemberConfirmed TeamMemberStatus = "confirmed"
	MemberDeclined  TeamMemberStatus = "declined"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Team 四人小队（队长 + 3 名成员）
type Team struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	LeaderID  string     `json:"leader_id" db:"leader_id"`
	Status    TeamStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// TeamMember 队伍成员关系
type TeamMember struct {
	ID          string           `json:"id" db:"id"`
	TeamID      string           `json:"team_id" db:"team_id"`
	UserID      string           `json:"user_id" db:"user_id"`
	Role        TeamMemberRole   `json:"role" db:"role"`
	Status      TeamMemberStatus `json:"status" db:"status"`
	InvitedAt   time.Time        `json:"invited_at" db:"invited_at"`
	ConfirmedAt *time.Time       `json:"confirmed_at,omitempty" db:"confirmed_at"`
}

// TeamInvitation 针对每个非队长成员的邀请
type TeamInvitation struct {
	ID          string           `json:"id" db:"id"`
	TeamID      string           `json:"team_id" db:"team_id"`
	InviterID   string           `json:"inviter_id" db:"inviter_id"`
	InviteeID   string           `json:"invitee_id" db:"invitee_id"`
	Status      InvitationStatus `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	RespondedAt *time.Time       `json:"responded_at,omitempty" db:"responded_at"`
}

// NewTeamRecords is everything written when a team is created.
type NewTeamRecords struct {
	Team        Team
	Members     []TeamMember
	Invitations []TeamInvitation
}

// InvitationResponse 邀请回复（接受或拒绝）的写入请求
type InvitationResponse struct {
	InvitationID string
	InviteeID    string
	Accept       bool
	TeamSize     int
	RespondedAt  time.Time
}

// InvitationOutcome 邀请回复后的结果
type InvitationOutcome struct {
	Invitation    TeamInvitation `json:"invitation"`
	TeamID        string         `json:"team_id"`
	TeamStatus    TeamStatus     `json:"team_status"`
	TeamActivated bool           `json:"team_activated"`
}

// TeamNotification 通知列表中的待处理邀请
type TeamNotification struct {
	ID        string           `json:"id"`
	TeamID    string           `json:"team_id"`
	InviterID string           `json:"inviter_id"`
	Status    InvitationStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	Team      struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		LeaderID string `json:"leader_id"`
	} `json:"teams"`
	Inviter struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
	} `json:"inviter"`
}

// TeamMemberDetail 成员及其资料
type TeamMemberDetail struct {
	TeamMember
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// TeamWithMembers 队伍详情
type TeamWithMembers struct {
	Team
	Members []TeamMemberDetail `json:"members"`
}

type MeetingType string

const (
	MeetingTeamVsTeam        MeetingType = "team_vs_team"
	MeetingTeamVsIndividuals MeetingType = "team_vs_individuals"
)

type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingCompleted MeetingStatus = "completed"
	MeetingCancelled MeetingStatus = "cancelled"
)

// TeamMeeting 两支小队（或一支小队与四名个人会员）的见面活动
type TeamMeeting struct {
	ID          string        `json:"id" db:"id"`
	Title       string        `json:"title" db:"title"`
	Description string        `json:"description" db:"description"`
	MeetingDate string        `json:"meeting_date" db:"meeting_date"` // YYYY-MM-DD
	MeetingTime string        `json:"meeting_time" db:"meeting_time"` // HH:MM
	Location    string        `json:"location" db:"location"`
	OrganizerID string        `json:"organizer_id" db:"organizer_id"`
	MeetingType MeetingType   `json:"meeting_type" db:"meeting_type"`
	Team1ID     string        `json:"team1_id,omitempty" db:"team1_id"`
	Team2ID     string        `json:"team2_id,omitempty" db:"team2_id"`
	Status      MeetingStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}
