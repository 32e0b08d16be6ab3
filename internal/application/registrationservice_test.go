package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewrelay/internal/application"
	"github.com/ericfisherdev/reviewrelay/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockGitInspector struct {
	checkouts map[string]driven.CheckoutInfo
}

func (m *mockGitInspector) Inspect(_ context.Context, path string) (*driven.CheckoutInfo, error) {
	info, ok := m.checkouts[path]
	if !ok {
		return nil, driven.ErrNotGitCheckout
	}
	return &info, nil
}

type mockMetadataClient struct {
	branch string
	err    error
	calls  int
}

func (m *mockMetadataClient) DefaultBranch(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.branch, m.err
}

func newRegistration(h *harness, git *mockGitInspector, meta driven.RepoMetadataClient) *application.RegistrationService {
	return application.NewRegistrationService(git, meta, h.repoStore, h.sessionStore, h.signals)
}

func TestRegister_CreatesRepoPathAndSession(t *testing.T) {
	h := newHarness(t)
	git := &mockGitInspector{checkouts: map[string]driven.CheckoutInfo{
		appPath: {Toplevel: appPath, RemoteURL: appRemote, Branch: "feature"},
	}}
	meta := &mockMetadataClient{branch: "trunk"}

	reg, err := newRegistration(h, git, meta).Register(context.Background(), appPath)
	require.NoError(t, err)

	assert.True(t, reg.CreatedRepo)
	assert.True(t, reg.CreatedSession)
	assert.Equal(t, "acme/app", reg.Repo.Name)
	assert.Equal(t, "trunk", reg.Repo.BaseBranch)
	assert.Equal(t, "feature", reg.Session.Branch)

	res, err := h.resolver.Resolve(context.Background(), appPath)
	require.NoError(t, err)
	assert.Equal(t, reg.Session.ID, res.Session.ID)
}

func TestRegister_SameBranchReusesSession(t *testing.T) {
	h := newHarness(t)
	git := &mockGitInspector{checkouts: map[string]driven.CheckoutInfo{
		appPath: {Toplevel: appPath, RemoteURL: appRemote, Branch: "feature"},
	}}
	svc := newRegistration(h, git, nil)

	first, err := svc.Register(context.Background(), appPath)
	require.NoError(t, err)
	second, err := svc.Register(context.Background(), appPath)
	require.NoError(t, err)

	assert.False(t, second.CreatedRepo)
	assert.False(t, second.CreatedSession)
	assert.Equal(t, first.Session.ID, second.Session.ID)
	assert.Equal(t, application.DefaultBaseBranch, second.Repo.BaseBranch)
}

func TestRegister_NewBranchStartsSessionAndClearsSignal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	git := &mockGitInspector{checkouts: map[string]driven.CheckoutInfo{
		appPath: {Toplevel: appPath, RemoteURL: appRemote, Branch: "feature"},
	}}
	svc := newRegistration(h, git, nil)

	first, err := svc.Register(ctx, appPath)
	require.NoError(t, err)
	h.createComment(t, first.Session.ID, "a.go", nil, "on old branch")
	require.NotNil(t, h.signalFor(t, appPath, appRemote))

	git.checkouts[appPath] = driven.CheckoutInfo{Toplevel: appPath, RemoteURL: appRemote, Branch: "feature-2"}
	second, err := svc.Register(ctx, appPath)
	require.NoError(t, err)

	assert.True(t, second.CreatedSession)
	assert.NotEqual(t, first.Session.ID, second.Session.ID)
	assert.Nil(t, h.signalFor(t, appPath, appRemote))
}

func TestRegister_WorktreeJoinsRepoByRemote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	git := &mockGitInspector{checkouts: map[string]driven.CheckoutInfo{
		appPath:        {Toplevel: appPath, RemoteURL: appRemote, Branch: "feature"},
		"/work/app-wt": {Toplevel: "/work/app-wt", RemoteURL: appRemote, Branch: "feature"},
	}}
	svc := newRegistration(h, git, nil)

	first, err := svc.Register(ctx, appPath)
	require.NoError(t, err)
	second, err := svc.Register(ctx, "/work/app-wt")
	require.NoError(t, err)

	assert.Equal(t, first.Repo.ID, second.Repo.ID)
	paths, err := h.repoStore.ListPaths(ctx, first.Repo.ID)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestRegister_NoRemoteDetachedHead(t *testing.T) {
	h := newHarness(t)
	git := &mockGitInspector{checkouts: map[string]driven.CheckoutInfo{
		"/work/scratch": {Toplevel: "/work/scratch"},
	}}
	meta := &mockMetadataClient{branch: "ignored"}

	reg, err := newRegistration(h, git, meta).Register(context.Background(), "/work/scratch")
	require.NoError(t, err)

	assert.Equal(t, "scratch", reg.Repo.Name)
	assert.Equal(t, "HEAD", reg.Session.Branch)
	assert.Zero(t, meta.calls, "no remote means no metadata lookup")
}

func TestRegister_MetadataFailureFallsBack(t *testing.T) {
	h := newHarness(t)
	git := &mockGitInspector{checkouts: map[string]driven.CheckoutInfo{
		appPath: {Toplevel: appPath, RemoteURL: appRemote, Branch: "feature"},
	}}
	meta := &mockMetadataClient{err: errors.New("rate limited")}

	reg, err := newRegistration(h, git, meta).Register(context.Background(), appPath)
	require.NoError(t, err)
	assert.Equal(t, application.DefaultBaseBranch, reg.Repo.BaseBranch)
}

func TestRegister_NotACheckout(t *testing.T) {
	h := newHarness(t)
	git := &mockGitInspector{checkouts: map[string]driven.CheckoutInfo{}}

	_, err := newRegistration(h, git, nil).Register(context.Background(), "/tmp/nothing")
	assert.ErrorIs(t, err, driven.ErrNotGitCheckout)
}

func TestRepoDisplayName(t *testing.T) {
	assert.Equal(t, "acme/app", application.RepoDisplayName("git@github.com:acme/app.git", "/x/y"))
	assert.Equal(t, "team/api", application.RepoDisplayName("https://gitlab.example.com/team/api", "/x/y"))
	assert.Equal(t, "y", application.RepoDisplayName("", "/x/y"))
}
