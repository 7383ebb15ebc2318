package database

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"club-space-backend/pkg/models"
	"club-space-backend/pkg/teams"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSupabase(t *testing.T, h http.HandlerFunc) *SupabaseDatabase {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewSupabaseDatabase(srv.URL, "service-key")
}

func TestSupabase_HeadersAndFilters(t *testing.T) {
	db := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/rest/v1/reservations", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "eq.space-1", q.Get("space_id"))
		assert.Equal(t, "eq.2030-01-02", q.Get("reservation_date"))
		assert.Equal(t, "eq.confirmed", q.Get("status"))
		w.Write([]byte(`[{"id":"r1","space_id":"space-1","reservation_date":"2030-01-02","start_time":"09:00:00","end_time":"10:30:00","status":"confirmed","total_amount":13500}]`))
	})

	rows, err := db.ListConfirmedReservations(context.Background(), "space-1", "2030-01-02")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "09:00", rows[0].StartTime)
	assert.Equal(t, "10:30", rows[0].EndTime)
}

func TestSupabase_FetchErrorIsSurfaced(t *testing.T) {
	db := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"boom"}`))
	})
	_, err := db.ListConfirmedReservations(context.Background(), "space-1", "2030-01-02")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestSupabase_JoinGroupConflict(t *testing.T) {
	db := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint"}`))
	})
	err := db.JoinGroup(context.Background(), &models.GroupMembership{ID: "m", GroupID: "g", UserID: "u"})
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestSupabase_RPCErrorMapping(t *testing.T) {
	db := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/respond_team_invitation", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"P0001","message":"INVITATION_NOT_PENDING"}`))
	})
	_, err := db.RespondToInvitation(context.Background(), models.InvitationResponse{InvitationID: "i", InviteeID: "u", Accept: true, TeamSize: 4})
	assert.ErrorIs(t, err, teams.ErrInvitationNotPending)
}

func TestSupabase_RespondToInvitation(t *testing.T) {
	db := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		assert.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "inv-1", payload["p_invitation_id"])
		assert.Equal(t, "u3", payload["p_invitee_id"])
		assert.Equal(t, true, payload["p_accept"])
		assert.Equal(t, float64(4), payload["p_team_size"])
		w.Write([]byte(`{"invitation":{"id":"inv-1","team_id":"t1","invitee_id":"u3","status":"accepted"},"team_id":"t1","team_status":"active","team_activated":true}`))
	})
	out, err := db.RespondToInvitation(context.Background(), models.InvitationResponse{
		InvitationID: "inv-1", InviteeID: "u3", Accept: true, TeamSize: 4, RespondedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, out.TeamActivated)
	assert.Equal(t, models.TeamActive, out.TeamStatus)
	assert.Equal(t, models.InvitationAccepted, out.Invitation.Status)
}

func TestSupabase_ListPendingInvitations(t *testing.T) {
	db := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.u1", r.URL.Query().Get("invitee_id"))
		assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		w.Write([]byte(`[{"id":"i1","team_id":"t1","inviter_id":"l","status":"pending","created_at":"2025-01-01T00:00:00+00:00",
			"teams":{"id":"t1","name":"Night Runners","leader_id":"l"},
			"inviter":{"id":"l","display_name":"Leader","email":"leader@example.com"}}]`))
	})
	notes, err := db.ListPendingInvitations(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Night Runners", notes[0].Team.Name)
	assert.Equal(t, "Leader", notes[0].Inviter.DisplayName)
}

func TestSupabase_CancelReservationNoRows(t *testing.T) {
	db := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.confirmed", r.URL.Query().Get("status"))
		w.Write([]byte(`[]`))
	})
	err := db.CancelReservation(context.Background(), "r1", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupabase_ProfileStatsCounts(t *testing.T) {
	db := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/profiles":
			w.Write([]byte(`[{"id":"p1","display_name":"Kim","email":"kim@example.com"}]`))
		case "/rest/v1/follows":
			assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
			w.Header().Set("Content-Range", "0-0/3")
			w.Write([]byte(`[]`))
		case "/rest/v1/posts":
			w.Header().Set("Content-Range", "*/0")
			w.Write([]byte(`[]`))
		}
	})
	stats, err := db.GetProfileStats(context.Background(), "p1", "viewer")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.FollowerCount)
	assert.Equal(t, 3, stats.FollowingCount)
	assert.Equal(t, 0, stats.PostCount)
	assert.True(t, stats.IsFollowing)
}

func TestSupabase_InvalidIDIsNotFound(t *testing.T) {
	db := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"22P02","message":"invalid input syntax for type uuid: \"abc\""}`))
	})
	_, err := db.GetSpace(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupabase_Meetings(t *testing.T) {
	var posted map[string]interface{}
	db := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/team_meetings", r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(body, &posted))
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			assert.Equal(t, "meeting_date.desc,meeting_time.desc,created_at.desc", r.URL.Query().Get("order"))
			w.Write([]byte(`[{"id":"meet-1","title":"Spring match","meeting_date":"2030-03-01","meeting_time":"18:00:00",` +
				`"organizer_id":"leader","meeting_type":"team_vs_individuals","team1_id":"t1","team2_id":null,"status":"scheduled"}]`))
		}
	})

	err := db.CreateMeeting(context.Background(), &models.TeamMeeting{
		ID: "meet-1", Title: "Spring match", MeetingDate: "2030-03-01", MeetingTime: "18:00",
		OrganizerID: "leader", MeetingType: models.MeetingTeamVsIndividuals, Team1ID: "t1", Status: models.MeetingScheduled,
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", posted["team1_id"])
	_, hasTeam2 := posted["team2_id"]
	assert.False(t, hasTeam2)

	list, err := db.ListMeetings(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "18:00", list[0].MeetingTime)
	assert.Empty(t, list[0].Team2ID)
}
