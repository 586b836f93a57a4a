package contacts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubsync/issue-ticket-sync/internal/githubapi"
	"github.com/hubsync/issue-ticket-sync/internal/store"
	"github.com/hubsync/issue-ticket-sync/internal/ticket"
)

type fakeContactStore struct {
	mu   sync.Mutex
	refs map[string]string
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{refs: map[string]string{}}
}

func (f *fakeContactStore) GetContactID(_ context.Context, login string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.refs[login]
	return id, ok, nil
}

func (f *fakeContactStore) PutContactRef(_ context.Context, login, contactID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.refs[login]; ok {
		return store.ErrConflict
	}
	f.refs[login] = contactID
	return nil
}

type fakeProfiles struct {
	profile githubapi.UserProfile
	err     error
	calls   int
}

func (f *fakeProfiles) FetchUser(context.Context, string) (githubapi.UserProfile, error) {
	f.calls++
	return f.profile, f.err
}

type fakeCRM struct {
	created      []ticket.ContactProperties
	associations [][2]string
	createErr    error
}

func (f *fakeCRM) CreateContact(_ context.Context, props ticket.ContactProperties) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, props)
	return "C-1", nil
}

func (f *fakeCRM) AssociateTicketContact(_ context.Context, ticketID, contactID string) error {
	f.associations = append(f.associations, [2]string{ticketID, contactID})
	return nil
}

func TestLink_KnownReporterReusesStoredContact(t *testing.T) {
	st := newFakeContactStore()
	st.refs["octocat"] = "C-55"
	profiles := &fakeProfiles{}
	crm := &fakeCRM{}
	linker := NewLinker(st, profiles, crm, zerolog.Nop())

	require.NoError(t, linker.Link(context.Background(), "octocat", "T-1"))

	assert.Zero(t, profiles.calls, "known reporter must not hit the profile API")
	assert.Empty(t, crm.created)
	assert.Equal(t, [][2]string{{"T-1", "C-55"}}, crm.associations)
}

func TestLink_UnknownReporterCreatesContactFromProfile(t *testing.T) {
	st := newFakeContactStore()
	profiles := &fakeProfiles{profile: githubapi.UserProfile{
		Login: "octocat", Name: "Mona Lisa Octocat", Email: "mona@example.com",
	}}
	crm := &fakeCRM{}
	linker := NewLinker(st, profiles, crm, zerolog.Nop())

	require.NoError(t, linker.Link(context.Background(), "octocat", "T-1"))

	require.Len(t, crm.created, 1)
	assert.Equal(t, "Mona", crm.created[0].FirstName)
	assert.Equal(t, "Octocat", crm.created[0].LastName)
	assert.Equal(t, "mona@example.com", crm.created[0].Email)

	id, ok, _ := st.GetContactID(context.Background(), "octocat")
	assert.True(t, ok)
	assert.Equal(t, "C-1", id)
	assert.Equal(t, [][2]string{{"T-1", "C-1"}}, crm.associations)
}

func TestLink_NamelessProfileFallsBackToLogin(t *testing.T) {
	st := newFakeContactStore()
	profiles := &fakeProfiles{profile: githubapi.UserProfile{Login: "ghost"}}
	crm := &fakeCRM{}
	linker := NewLinker(st, profiles, crm, zerolog.Nop())

	require.NoError(t, linker.Link(context.Background(), "ghost", "T-2"))

	require.Len(t, crm.created, 1)
	assert.Equal(t, "ghost", crm.created[0].FirstName)
}

func TestLink_ProfileFetchFailurePropagates(t *testing.T) {
	st := newFakeContactStore()
	profiles := &fakeProfiles{err: errors.New("github down")}
	crm := &fakeCRM{}
	linker := NewLinker(st, profiles, crm, zerolog.Nop())

	err := linker.Link(context.Background(), "octocat", "T-1")
	assert.Error(t, err)
	assert.Empty(t, crm.created)
	assert.Empty(t, crm.associations)
}

func TestLink_RefConflictUsesWinner(t *testing.T) {
	st := newFakeContactStore()
	profiles := &fakeProfiles{profile: githubapi.UserProfile{Name: "Mona Octocat"}}
	crm := &fakeCRM{}

	// The ref appears between the Get miss and the Put, as under a
	// concurrent duplicate delivery.
	raced := &racingContactStore{fakeContactStore: st, winner: "C-99"}
	linker := NewLinker(raced, profiles, crm, zerolog.Nop())

	require.NoError(t, linker.Link(context.Background(), "octocat", "T-1"))

	assert.Equal(t, [][2]string{{"T-1", "C-99"}}, crm.associations)
}

// racingContactStore reports a miss on first Get, then conflicts on Put as if
// another worker inserted in between.
type racingContactStore struct {
	*fakeContactStore
	winner string
	gets   int
}

func (r *racingContactStore) GetContactID(ctx context.Context, login string) (string, bool, error) {
	r.gets++
	if r.gets == 1 {
		return "", false, nil
	}
	return r.winner, true, nil
}

func (r *racingContactStore) PutContactRef(context.Context, string, string) error {
	return store.ErrConflict
}
