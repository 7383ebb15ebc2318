package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"club-space-backend/pkg/booking"
	"club-space-backend/pkg/database"
	"club-space-backend/pkg/models"
	"club-space-backend/pkg/teams"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2030-01-01 10:00 KST
var fixedNow = time.Date(2030, 1, 1, 1, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *database.SQLDatabase {
	t.Helper()
	db, err := database.NewSQLiteDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SeedSpaces(context.Background(), []models.Space{
		{ID: "space-1", Name: "Studio A", Location: "Seoul", Capacity: 8, HourlyRate: 9000, CreatedAt: fixedNow},
	}))
	return db
}

func addUser(t *testing.T, db *database.SQLDatabase, id, name, email string) {
	t.Helper()
	require.NoError(t, db.UpsertProfile(context.Background(), &models.Profile{
		ID: id, DisplayName: name, Email: email, CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}))
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newReservationService(db database.DatabaseInterface) *ReservationService {
	s := NewReservationService(db, booking.NewPolicy("Asia/Seoul", func() time.Time { return fixedNow }))
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestReservationService_BookAndAvailability(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)
	s := newReservationService(db)

	r, err := s.Book(ctx, "u1", BookingRequest{SpaceID: "space-1", Date: "2030-01-02", Slots: []string{"10:00", "09:00", "09:30"}})
	require.NoError(t, err)
	assert.Equal(t, "09:00", r.StartTime)
	assert.Equal(t, "10:30", r.EndTime)
	assert.Equal(t, int64(13500), r.TotalAmount)
	assert.Equal(t, models.ReservationConfirmed, r.Status)

	avail, err := s.Availability(ctx, "space-1", "2030-01-02")
	require.NoError(t, err)
	require.Len(t, avail.Slots, booking.SlotsPerDay)
	busy := map[string]bool{}
	for _, slot := range avail.Slots {
		if !slot.Available {
			busy[slot.Time] = true
		}
	}
	assert.Equal(t, map[string]bool{"09:00": true, "09:30": true, "10:00": true}, busy)

	// 10:30 起的时段与已有预约首尾相接，可以预约
	_, err = s.Book(ctx, "u2", BookingRequest{SpaceID: "space-1", Date: "2030-01-02", Slots: []string{"10:30"}})
	assert.NoError(t, err)

	_, err = s.Book(ctx, "u2", BookingRequest{SpaceID: "space-1", Date: "2030-01-02", Slots: []string{"10:00"}})
	assert.ErrorIs(t, err, database.ErrSlotTaken)
}

func TestReservationService_BookValidation(t *testing.T) {
	ctx := context.Background()
	s := newReservationService(newStore(t))

	_, err := s.Book(ctx, "u1", BookingRequest{SpaceID: "space-1", Date: "2030-01-02", Slots: []string{"09:00", "10:00"}})
	assert.ErrorIs(t, err, booking.ErrNotContiguous)

	_, err = s.Book(ctx, "u1", BookingRequest{SpaceID: "space-1", Date: "2030-01-02", Slots: []string{"09:15"}})
	assert.ErrorIs(t, err, booking.ErrInvalidSlot)

	_, err = s.Book(ctx, "u1", BookingRequest{SpaceID: "space-1", Date: "01/02/2030", Slots: []string{"09:00"}})
	assert.ErrorIs(t, err, booking.ErrInvalidDate)

	_, err = s.Book(ctx, "u1", BookingRequest{SpaceID: "space-1", Date: "2030-01-05garbage", Slots: []string{"09:00"}})
	assert.ErrorIs(t, err, booking.ErrInvalidDate)

	_, err = s.Book(ctx, "u1", BookingRequest{SpaceID: "space-1", Date: "2020-01-01", Slots: []string{"09:00"}})
	assert.ErrorIs(t, err, booking.ErrPastDate)

	// 当天也不可预约
	_, err = s.Book(ctx, "u1", BookingRequest{SpaceID: "space-1", Date: "2030-01-01", Slots: []string{"20:00"}})
	assert.ErrorIs(t, err, booking.ErrPastDate)

	_, err = s.Availability(ctx, "space-1", "2030-01-05garbage")
	assert.ErrorIs(t, err, booking.ErrInvalidDate)

	_, err = s.Book(ctx, "u1", BookingRequest{SpaceID: "missing", Date: "2030-01-02", Slots: []string{"09:00"}})
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = s.Availability(ctx, "missing", "2030-01-02")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestReservationService_Cancel(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)
	s := newReservationService(db)

	// 当天的预约只能通过存储层写入
	today := &models.Reservation{
		ID: "r-today", SpaceID: "space-1", UserID: "u1", ReservationDate: "2030-01-01",
		StartTime: "18:00", EndTime: "18:30", TotalAmount: 4500, Status: models.ReservationConfirmed, CreatedAt: fixedNow,
	}
	require.NoError(t, db.CreateReservation(ctx, today))
	tomorrow, err := s.Book(ctx, "u1", BookingRequest{SpaceID: "space-1", Date: "2030-01-02", Slots: []string{"18:00"}})
	require.NoError(t, err)

	_, err = s.Cancel(ctx, "u1", today.ID)
	assert.ErrorIs(t, err, booking.ErrCancelWindow)

	_, err = s.Cancel(ctx, "intruder", tomorrow.ID)
	assert.ErrorIs(t, err, database.ErrForbidden)

	cancelled, err := s.Cancel(ctx, "u1", tomorrow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, cancelled.Status)

	stored, err := db.GetReservation(ctx, tomorrow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, stored.Status)

	_, err = s.Cancel(ctx, "u1", tomorrow.ID)
	assert.ErrorIs(t, err, booking.ErrNotCancelable)

	mine, err := s.MyReservations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	states := map[string]string{}
	for _, r := range mine {
		states[r.ID] = r.DisplayState
		assert.False(t, r.Cancellable)
	}
	assert.Equal(t, "confirmed", states[today.ID])
	assert.Equal(t, "cancelled", states[tomorrow.ID])
}

func newTeamFixture(t *testing.T) (*database.SQLDatabase, *TeamService) {
	t.Helper()
	db := newStore(t)
	addUser(t, db, "leader", "Leader Kim", "leader@example.com")
	addUser(t, db, "m1", "Minji Park", "minji@example.com")
	addUser(t, db, "m2", "Jisoo Lee", "jisoo@example.com")
	addUser(t, db, "m3", "Hana Choi", "hana@example.com")
	s := NewTeamService(db, teams.NewPolicy(4))
	s.now = func() time.Time { return fixedNow }
	return db, s
}

func TestTeamService_CreateAndActivate(t *testing.T) {
	ctx := context.Background()
	db, s := newTeamFixture(t)

	team, err := s.Create(ctx, "leader", CreateTeamRequest{Name: "Night Owls", MemberIDs: []string{"m1", "m2", "m3"}})
	require.NoError(t, err)
	assert.Equal(t, models.TeamPending, team.Status)

	for i, member := range []string{"m1", "m2", "m3"} {
		notes, err := s.Notifications(ctx, member)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, "Night Owls", notes[0].Team.Name)

		res, err := s.Respond(ctx, member, RespondRequest{InvitationID: notes[0].ID, Response: "accepted"})
		require.NoError(t, err)
		assert.Equal(t, i == 2, res.Outcome.TeamActivated, "only the final accept activates")
	}

	stored, err := db.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamActive, stored.Status)

	list, err := s.ListTeams(ctx, "m2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Members, 4)
}

func TestTeamService_DeclineKeepsTeamPending(t *testing.T) {
	ctx := context.Background()
	db, s := newTeamFixture(t)

	team, err := s.Create(ctx, "leader", CreateTeamRequest{Name: "Crew", MemberIDs: []string{"m1", "m2", "m3"}})
	require.NoError(t, err)

	answers := map[string]string{"m1": "rejected", "m2": "accepted", "m3": "accepted"}
	for member, answer := range answers {
		notes, err := s.Notifications(ctx, member)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		res, err := s.Respond(ctx, member, RespondRequest{InvitationID: notes[0].ID, Response: answer})
		require.NoError(t, err)
		assert.False(t, res.Outcome.TeamActivated)
	}

	stored, err := db.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamPending, stored.Status)
}

func TestTeamService_RespondErrors(t *testing.T) {
	ctx := context.Background()
	_, s := newTeamFixture(t)

	_, err := s.Create(ctx, "leader", CreateTeamRequest{Name: "Crew", MemberIDs: []string{"m1", "m2", "m3"}})
	require.NoError(t, err)
	notes, err := s.Notifications(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, notes, 1)

	_, err = s.Respond(ctx, "m1", RespondRequest{InvitationID: notes[0].ID, Response: "maybe"})
	assert.ErrorIs(t, err, teams.ErrInvalidResponse)

	_, err = s.Respond(ctx, "m2", RespondRequest{InvitationID: notes[0].ID, Response: "accepted"})
	assert.ErrorIs(t, err, teams.ErrNotInvitee)

	_, err = s.Respond(ctx, "m1", RespondRequest{InvitationID: notes[0].ID, Response: "accepted"})
	require.NoError(t, err)
	_, err = s.Respond(ctx, "m1", RespondRequest{InvitationID: notes[0].ID, Response: "declined"})
	assert.ErrorIs(t, err, teams.ErrInvitationNotPending)
}

func TestTeamService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	_, s := newTeamFixture(t)

	_, err := s.Create(ctx, "leader", CreateTeamRequest{Name: "Crew", MemberIDs: []string{"m1", "m2"}})
	assert.ErrorIs(t, err, teams.ErrInvalidTeamSize)

	_, err = s.Create(ctx, "leader", CreateTeamRequest{Name: "Crew", MemberIDs: []string{"m1", "m1", "m2"}})
	assert.ErrorIs(t, err, teams.ErrDuplicateInvitee)

	_, err = s.Create(ctx, "leader", CreateTeamRequest{Name: "Crew", MemberIDs: []string{"leader", "m1", "m2"}})
	assert.ErrorIs(t, err, teams.ErrLeaderInvited)

	_, err = s.Create(ctx, "leader", CreateTeamRequest{Name: "Crew", MemberIDs: []string{"m1", "m2", "ghost"}})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestTeamService_CreateByNames(t *testing.T) {
	ctx := context.Background()
	_, s := newTeamFixture(t)

	team, err := s.Create(ctx, "leader", CreateTeamRequest{
		Name:        "By Name",
		MemberIDs:   []string{"m1"},
		MemberNames: []string{"jisoo", "hana"},
	})
	require.NoError(t, err)
	assert.Equal(t, "leader", team.LeaderID)

	_, err = s.ResolveUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrInviteeNotFound)

	// 完整邮箱与 /api/search-users 的查找方式一致
	id, err := s.ResolveUser(ctx, "minji@example.com")
	require.NoError(t, err)
	assert.Equal(t, "m1", id)

	byEmail, err := s.Create(ctx, "leader", CreateTeamRequest{
		Name:        "By Email",
		MemberNames: []string{"minji@example.com", "jisoo@example.com", "hana@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.TeamPending, byEmail.Status)

	// "a" 同时匹配多个显示名
	_, err = s.ResolveUser(ctx, "a")
	assert.ErrorIs(t, err, ErrAmbiguousInvitee)
}

func TestTeamService_Disband(t *testing.T) {
	ctx := context.Background()
	_, s := newTeamFixture(t)

	team, err := s.Create(ctx, "leader", CreateTeamRequest{Name: "Crew", MemberIDs: []string{"m1", "m2", "m3"}})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Disband(ctx, "m1", team.ID), teams.ErrNotLeader)
	require.NoError(t, s.Disband(ctx, "leader", team.ID))

	notes, err := s.Notifications(ctx, "m2")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	_, err = s.Respond(ctx, "m2", RespondRequest{InvitationID: notes[0].ID, Response: "accepted"})
	assert.ErrorIs(t, err, teams.ErrTeamNotPending)

	assert.ErrorIs(t, s.Disband(ctx, "leader", team.ID), teams.ErrTeamNotPending)
}

func activeTeam(t *testing.T, s *TeamService, leader string, members []string) *models.Team {
	t.Helper()
	ctx := context.Background()
	team, err := s.Create(ctx, leader, CreateTeamRequest{Name: leader + "'s team", MemberIDs: members})
	require.NoError(t, err)
	for _, m := range members {
		notes, err := s.Notifications(ctx, m)
		require.NoError(t, err)
		for _, n := range notes {
			if n.TeamID == team.ID {
				_, err = s.Respond(ctx, m, RespondRequest{InvitationID: n.ID, Response: "accepted"})
				require.NoError(t, err)
			}
		}
	}
	team.Status = models.TeamActive
	return team
}

func TestTeamService_Meetings(t *testing.T) {
	ctx := context.Background()
	db, s := newTeamFixture(t)
	for _, id := range []string{"leader2", "a1", "a2", "a3"} {
		addUser(t, db, id, "Other "+id, id+"@example.org")
	}
	first := activeTeam(t, s, "leader", []string{"m1", "m2", "m3"})
	second := activeTeam(t, s, "leader2", []string{"a1", "a2", "a3"})
	pending, err := s.Create(ctx, "m1", CreateTeamRequest{Name: "Waiting", MemberIDs: []string{"a1", "a2", "a3"}})
	require.NoError(t, err)

	vsTeam, err := s.CreateMeeting(ctx, "leader", CreateMeetingRequest{
		Title: "Derby", MeetingDate: "2030-02-01", MeetingTime: "19:00:00",
		MeetingType: "team_vs_team", Team1ID: first.ID, Team2ID: second.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "19:00", vsTeam.MeetingTime)
	assert.Equal(t, models.MeetingScheduled, vsTeam.Status)

	vsIndividuals, err := s.CreateMeeting(ctx, "leader2", CreateMeetingRequest{
		Title: "Open night", MeetingDate: "2030-03-01", MeetingTime: "18:30",
		MeetingType: "team_vs_individuals", Team1ID: second.ID,
	})
	require.NoError(t, err)
	assert.Empty(t, vsIndividuals.Team2ID)

	tests := []struct {
		name string
		req  CreateMeetingRequest
		want error
	}{
		{"pending team", CreateMeetingRequest{Title: "x", MeetingDate: "2030-02-01", MeetingTime: "18:00", MeetingType: "team_vs_individuals", Team1ID: pending.ID}, teams.ErrTeamNotActive},
		{"same team twice", CreateMeetingRequest{Title: "x", MeetingDate: "2030-02-01", MeetingTime: "18:00", Team1ID: first.ID, Team2ID: first.ID}, teams.ErrMeetingTeams},
		{"missing second team", CreateMeetingRequest{Title: "x", MeetingDate: "2030-02-01", MeetingTime: "18:00", Team1ID: first.ID}, teams.ErrMeetingTeams},
		{"individuals with two teams", CreateMeetingRequest{Title: "x", MeetingDate: "2030-02-01", MeetingTime: "18:00", MeetingType: "team_vs_individuals", Team1ID: first.ID, Team2ID: second.ID}, teams.ErrMeetingTeams},
		{"unknown type", CreateMeetingRequest{Title: "x", MeetingDate: "2030-02-01", MeetingTime: "18:00", MeetingType: "solo", Team1ID: first.ID}, teams.ErrInvalidMeetingType},
		{"unknown team", CreateMeetingRequest{Title: "x", MeetingDate: "2030-02-01", MeetingTime: "18:00", MeetingType: "team_vs_individuals", Team1ID: "nope"}, database.ErrNotFound},
		{"bad time", CreateMeetingRequest{Title: "x", MeetingDate: "2030-02-01", MeetingTime: "7pm", Team1ID: first.ID, Team2ID: second.ID}, ErrInvalidMeetingTime},
		{"bad date", CreateMeetingRequest{Title: "x", MeetingDate: "2030-02-30", MeetingTime: "18:00", Team1ID: first.ID, Team2ID: second.ID}, booking.ErrInvalidDate},
		{"blank title", CreateMeetingRequest{Title: "  ", MeetingDate: "2030-02-01", MeetingTime: "18:00", Team1ID: first.ID, Team2ID: second.ID}, ErrEmptyMeetingTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateMeeting(ctx, "leader", tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	list, err := s.ListMeetings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, vsIndividuals.ID, list[0].ID)
	assert.Equal(t, vsTeam.ID, list[1].ID)
}

func TestGroupService_JoinLeave(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)
	addUser(t, db, "u1", "Owner", "owner@example.com")
	addUser(t, db, "u2", "Guest", "guest@example.com")
	s := NewGroupService(db)

	g, err := s.Create(ctx, "u1", CreateGroupRequest{Name: "Climbers"})
	require.NoError(t, err)

	_, err = s.Join(ctx, "u1", g.ID)
	assert.ErrorIs(t, err, database.ErrAlreadyMember)

	_, err = s.Join(ctx, "u2", g.ID)
	require.NoError(t, err)
	_, err = s.Join(ctx, "u2", g.ID)
	assert.ErrorIs(t, err, database.ErrAlreadyMember)

	detail, err := s.Get(ctx, g.ID, "u2")
	require.NoError(t, err)
	assert.Len(t, detail.Members, 2)
	assert.True(t, detail.IsMember)

	require.NoError(t, s.Leave(ctx, "u2", g.ID))
	assert.ErrorIs(t, s.Leave(ctx, "u2", g.ID), database.ErrNotFound)

	_, err = s.Join(ctx, "u2", "no-such-group")
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = s.Create(ctx, "u1", CreateGroupRequest{Name: "   "})
	assert.ErrorIs(t, err, ErrEmptyGroupName)
}

func TestSocialService_SearchUsers(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)
	addUser(t, db, "u1", "Minji Park", "mj@example.com")
	addUser(t, db, "u2", "", "hana.choi@example.com")
	s := NewSocialService(db)

	users, err := s.SearchUsers(ctx, "minji")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, "mj", users[0].EmailPrefix)

	users, err = s.SearchUsers(ctx, "hana.choi")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "hana.choi", users[0].Name)

	// 邮箱前缀必须完全一致
	users, err = s.SearchUsers(ctx, "hana")
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = s.SearchUsers(ctx, "  ")
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestSocialService_PostsAndFollows(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)
	addUser(t, db, "u1", "Writer", "writer@example.com")
	addUser(t, db, "u2", "Reader", "reader@example.com")
	s := NewSocialService(db)

	assert.ErrorIs(t, s.Follow(ctx, "u1", "u1"), ErrSelfFollow)
	require.NoError(t, s.Follow(ctx, "u2", "u1"))
	require.NoError(t, s.Follow(ctx, "u2", "u1"))

	_, err := s.CreatePost(ctx, "u1", CreatePostRequest{Content: "  "})
	assert.ErrorIs(t, err, ErrEmptyContent)

	post, err := s.CreatePost(ctx, "u1", CreatePostRequest{Content: "first session booked"})
	require.NoError(t, err)
	require.NoError(t, s.Like(ctx, "u2", post.ID))
	require.NoError(t, s.Like(ctx, "u2", post.ID))
	_, err = s.AddComment(ctx, "u2", post.ID, CreateCommentRequest{Content: "nice"})
	require.NoError(t, err)

	feed, err := s.Feed(ctx, "u2", true)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, 1, feed[0].LikeCount)
	assert.Equal(t, 1, feed[0].CommentCount)
	assert.True(t, feed[0].Liked)

	stats, err := s.GetProfile(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FollowerCount)
	assert.True(t, stats.IsFollowing)

	assert.ErrorIs(t, s.Like(ctx, "u2", "missing"), database.ErrNotFound)
}

func TestSocialService_Messages(t *testing.T) {
	ctx := context.Background()
	db := newStore(t)
	addUser(t, db, "u1", "A", "a@example.com")
	addUser(t, db, "u2", "B", "b@example.com")
	s := NewSocialService(db)

	_, err := s.SendMessage(ctx, "u1", SendMessageRequest{ReceiverID: "u1", Content: "hi"})
	assert.ErrorIs(t, err, ErrSelfMessage)

	m, err := s.SendMessage(ctx, "u1", SendMessageRequest{ReceiverID: "u2", Content: "hi"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.MarkRead(ctx, "u1", m.ID), database.ErrNotFound)
	require.NoError(t, s.MarkRead(ctx, "u2", m.ID))

	msgs, err := s.Messages(ctx, "u2", "u1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsRead)
}
