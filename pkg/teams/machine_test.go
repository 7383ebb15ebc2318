package teams

import (
	"fmt"
	"testing"
	"time"

	"club-space-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestPlanCreate(t *testing.T) {
	p := NewPolicy(4)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	rec, err := p.PlanCreate(" Night Runners ", "leader", []string{"u1", "u2", "u3"}, now, seqIDs())
	require.NoError(t, err)

	assert.Equal(t, "Night Runners", rec.Team.Name)
	assert.Equal(t, models.TeamPending, rec.Team.Status)
	require.Len(t, rec.Members, 4)
	require.Len(t, rec.Invitations, 3)

	assert.Equal(t, models.TeamRoleLeader, rec.Members[0].Role)
	assert.Equal(t, models.MemberConfirmed, rec.Members[0].Status)
	require.NotNil(t, rec.Members[0].ConfirmedAt)
	for _, m := range rec.Members[1:] {
		assert.Equal(t, models.TeamRoleMember, m.Role)
		assert.Equal(t, models.MemberPending, m.Status)
		assert.Nil(t, m.ConfirmedAt)
		assert.Equal(t, rec.Team.ID, m.TeamID)
	}
	for _, inv := range rec.Invitations {
		assert.Equal(t, "leader", inv.InviterID)
		assert.Equal(t, models.InvitationPending, inv.Status)
	}
	assert.NoError(t, p.CheckMembers(rec.Members))
}

func TestValidateCreate(t *testing.T) {
	p := NewPolicy(4)
	assert.ErrorIs(t, p.ValidateCreate("t", "l", []string{"a", "b"}), ErrInvalidTeamSize)
	assert.ErrorIs(t, p.ValidateCreate("t", "l", []string{"a", "b", "c", "d"}), ErrInvalidTeamSize)
	assert.ErrorIs(t, p.ValidateCreate("t", "l", []string{"a", "a", "c"}), ErrDuplicateInvitee)
	assert.ErrorIs(t, p.ValidateCreate("t", "l", []string{"a", "l", "c"}), ErrLeaderInvited)
	assert.ErrorIs(t, p.ValidateCreate("  ", "l", []string{"a", "b", "c"}), ErrEmptyName)
	assert.NoError(t, p.ValidateCreate("t", "l", []string{"a", "b", "c"}))
}

func TestNewPolicy_Default(t *testing.T) {
	assert.Equal(t, DefaultSize, NewPolicy(0).Size)
	assert.Equal(t, 3, NewPolicy(3).InviteeCount()+1)
}

func TestActivationOnlyAfterFinalAccept(t *testing.T) {
	p := NewPolicy(4)
	now := time.Now()
	rec, err := p.PlanCreate("t", "leader", []string{"u1", "u2", "u3"}, now, seqIDs())
	require.NoError(t, err)

	members := rec.Members
	for i, inv := range rec.Invitations {
		require.NoError(t, p.CheckRespond(rec.Team, members, inv, inv.InviteeID))
		_, members = ApplyResponse(inv, members, true, now)
		if i < 2 {
			assert.False(t, p.ShouldActivate(members), "activated after %d accepts", i+1)
		}
	}
	assert.True(t, p.ShouldActivate(members))
}

func TestDeclineBlocksActivation(t *testing.T) {
	p := NewPolicy(4)
	now := time.Now()
	rec, err := p.PlanCreate("t", "leader", []string{"u1", "u2", "u3"}, now, seqIDs())
	require.NoError(t, err)

	members := rec.Members
	_, members = ApplyResponse(rec.Invitations[0], members, true, now)
	_, members = ApplyResponse(rec.Invitations[1], members, true, now)
	inv, members := ApplyResponse(rec.Invitations[2], members, false, now)

	assert.Equal(t, models.InvitationDeclined, inv.Status)
	require.NotNil(t, inv.RespondedAt)
	i, ok := FindMember(members, "u3")
	require.True(t, ok)
	assert.Equal(t, models.MemberDeclined, members[i].Status)
	assert.Len(t, members, 4)
	assert.False(t, p.ShouldActivate(members))
}

func TestApplyResponse_DoesNotMutateInput(t *testing.T) {
	members := []models.TeamMember{{UserID: "u1", Status: models.MemberPending}}
	_, out := ApplyResponse(models.TeamInvitation{InviteeID: "u1"}, members, true, time.Now())
	assert.Equal(t, models.MemberPending, members[0].Status)
	assert.Equal(t, models.MemberConfirmed, out[0].Status)
}

func TestCheckRespond(t *testing.T) {
	p := NewPolicy(4)
	rec, err := p.PlanCreate("t", "leader", []string{"u1", "u2", "u3"}, time.Now(), seqIDs())
	require.NoError(t, err)
	inv := rec.Invitations[0]

	assert.ErrorIs(t, p.CheckRespond(rec.Team, rec.Members, inv, "someone-else"), ErrNotInvitee)

	answered := inv
	answered.Status = models.InvitationAccepted
	assert.ErrorIs(t, p.CheckRespond(rec.Team, rec.Members, answered, inv.InviteeID), ErrInvitationNotPending)

	disbanded := rec.Team
	disbanded.Status = models.TeamDisbanded
	assert.ErrorIs(t, p.CheckRespond(disbanded, rec.Members, inv, inv.InviteeID), ErrTeamNotPending)

	assert.ErrorIs(t, p.CheckRespond(rec.Team, rec.Members[:3], inv, inv.InviteeID), ErrInvalidTeamSize)

	twoLeaders := append([]models.TeamMember(nil), rec.Members...)
	twoLeaders[1].Role = models.TeamRoleLeader
	assert.ErrorIs(t, p.CheckRespond(rec.Team, twoLeaders, inv, inv.InviteeID), ErrLeaderCount)
}

func TestCanDisband(t *testing.T) {
	p := NewPolicy(4)
	team := models.Team{LeaderID: "leader", Status: models.TeamPending}
	assert.NoError(t, p.CanDisband(team, "leader"))
	assert.ErrorIs(t, p.CanDisband(team, "u1"), ErrNotLeader)

	team.Status = models.TeamActive
	assert.ErrorIs(t, p.CanDisband(team, "leader"), ErrTeamNotPending)
}

func TestParseResponse(t *testing.T) {
	ok, err := ParseResponse("accepted")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ParseResponse("rejected")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ParseResponse("Declined")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ParseResponse("maybe")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}
