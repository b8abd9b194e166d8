package backup

import (
	"context"
	"errors"
	"sync"
	"testing"

	"guild-backup/core/guild"
	"guild-backup/core/reconcile"
	"guild-backup/core/snapshot"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_CreateStoresDocumentAndRow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.Create(ctx, h.platform.sourceID, "42", 0)
	require.NoError(t, err)

	assert.Equal(t, "b1", res.Record.ID)
	assert.Equal(t, "backups/b1.json", res.Record.ObjectKey)
	assert.Equal(t, h.platform.sourceID, res.Record.GuildID)
	assert.Equal(t, "Source", res.Record.GuildName)
	assert.Equal(t, "42", res.Record.CreatorID)

	data := h.objects.get("backups/b1.json")
	require.NotEmpty(t, data)
	assert.Equal(t, int64(len(data)), res.Record.SizeBytes)

	snap, err := snapshot.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 30, snap.ChatlogDepth())

	recs, err := h.svc.List(ctx, h.platform.sourceID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "b1", recs[0].ID)
}

func TestService_CreateHonorsDepth(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Create(context.Background(), h.platform.sourceID, "42", 7)
	require.NoError(t, err)

	snap, err := snapshot.Unmarshal(h.objects.get("backups/b1.json"))
	require.NoError(t, err)
	assert.Equal(t, 7, snap.ChatlogDepth())
}

func TestService_CreateInvalidGuild(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Create(context.Background(), "not-an-id", "42", 0)
	assert.Error(t, err)
	h.storage.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_CreateRemovesObjectWhenIndexFails(t *testing.T) {
	store, objects := newStorage()
	store.On("RemoveObject", mock.Anything, testBucket, "backups/b1.json", minio.RemoveObjectOptions{}).Return(nil)

	db, sqlMock := setupMockDB(t)
	sqlMock.ExpectBegin()
	sqlMock.ExpectExec("INSERT INTO `backups`").WillReturnError(errors.New("disk full"))
	sqlMock.ExpectRollback()

	p := newPlatform()
	svc := newTestService(t, store, NewRepository(db), p.client)

	_, err := svc.Create(context.Background(), p.sourceID, "42", 0)
	assert.ErrorContains(t, err, "disk full")
	assert.NotEmpty(t, objects.get("backups/b1.json"))
	store.AssertCalled(t, "RemoveObject", mock.Anything, testBucket, "backups/b1.json", minio.RemoveObjectOptions{})
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestService_GetUsesCacheAfterCreate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Create(ctx, h.platform.sourceID, "42", 0)
	require.NoError(t, err)

	rec, snap, err := h.svc.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", rec.ID)
	assert.Equal(t, "Source", snap.Name)
	h.storage.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_GetFetchesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Create(ctx, h.platform.sourceID, "42", 0)
	require.NoError(t, err)

	// A fresh service shares storage and index but starts with an empty cache.
	cold := newTestService(t, h.storage, h.repo, h.platform.client)
	serveObject(h.storage, "backups/b1.json", h.objects.get("backups/b1.json"))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = cold.Get(ctx, "b1")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	h.storage.AssertNumberOfCalls(t, "GetObject", 1)
}

func TestService_GetRejectsCorruptDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.repo.Insert(ctx, &Record{ID: "bad", GuildID: "1", ObjectKey: "backups/bad.json"}))
	serveObject(h.storage, "backups/bad.json", []byte(`{"version":1}`))

	_, _, err := h.svc.Get(ctx, "bad")
	assert.ErrorIs(t, err, snapshot.ErrInvalid)
}

func TestService_GetNotFound(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Info(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Create(ctx, h.platform.sourceID, "42", 0)
	require.NoError(t, err)

	info, err := h.svc.Info(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Summary.Members)
	assert.Equal(t, 2, info.Summary.Roles)
	assert.Equal(t, 1, info.Summary.Categories)
	assert.Equal(t, 2, info.Summary.Channels)
	assert.Equal(t, "42", info.Summary.Creator)
}

func TestService_Delete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Create(ctx, h.platform.sourceID, "42", 0)
	require.NoError(t, err)

	h.storage.On("RemoveObject", mock.Anything, testBucket, "backups/b1.json", minio.RemoveObjectOptions{}).Return(nil).Once()
	h.storage.On("RemoveObject", mock.Anything, testBucket, "backups/b1-members.txt", minio.RemoveObjectOptions{}).Return(nil).Once()

	require.NoError(t, h.svc.Delete(ctx, "b1"))
	h.storage.AssertExpectations(t)

	_, _, err = h.svc.Get(ctx, "b1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, h.svc.Delete(ctx, "b1"), ErrNotFound)
}

func TestService_DeleteKeepsRowWhenObjectRemovalFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Create(ctx, h.platform.sourceID, "42", 0)
	require.NoError(t, err)

	h.storage.On("RemoveObject", mock.Anything, testBucket, "backups/b1.json", mock.Anything).Return(errors.New("denied"))

	assert.ErrorContains(t, h.svc.Delete(ctx, "b1"), "denied")
	_, err = h.repo.Find(ctx, "b1")
	assert.NoError(t, err)
}

func TestService_ExportMembers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Create(ctx, h.platform.sourceID, "42", 0)
	require.NoError(t, err)

	key, err := h.svc.ExportMembers(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "backups/b1-members.txt", key)
	assert.Equal(t, "alice#0001 (501)\nbob#0002 (502)\n", string(h.objects.get(key)))
}

func TestService_OwnedKeys(t *testing.T) {
	h := newHarness(t)
	keys := h.svc.OwnedKeys(Record{ID: "b7", ObjectKey: "backups/b7.json"})
	assert.Equal(t, []string{"backups/b7.json", "backups/b7-members.txt"}, keys)
}

func TestService_Load(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Create(ctx, h.platform.sourceID, "42", 0)
	require.NoError(t, err)

	target := h.platform.client.AddGuild("Target")
	report, err := h.svc.Load(ctx, "b1", target, h.svc.DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(reconcile.KindRole, reconcile.ActionCreated))
	assert.Equal(t, 1, report.Count(reconcile.KindCategory, reconcile.ActionCreated))
	assert.Equal(t, 2, report.Count(reconcile.KindText, reconcile.ActionCreated))
	assert.Equal(t, testConfig.ReplayDepth, report.Count(reconcile.KindMessage, reconcile.ActionCreated))

	roles, err := h.platform.client.Roles(ctx, target)
	require.NoError(t, err)
	var names []string
	for _, r := range roles {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, "Mod")
}

func TestService_LoadInvalidTarget(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Create(ctx, h.platform.sourceID, "42", 0)
	require.NoError(t, err)

	_, err = h.svc.Load(ctx, "b1", "", h.svc.DefaultLoadOptions())
	assert.ErrorIs(t, err, reconcile.ErrInvalidInput)
}

func TestService_TargetBusy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.Create(ctx, h.platform.sourceID, "42", 0)
	require.NoError(t, err)
	target := h.platform.client.AddGuild("Target")

	release, err := h.svc.acquire(target)
	require.NoError(t, err)

	_, err = h.svc.Load(ctx, "b1", target, h.svc.DefaultLoadOptions())
	assert.ErrorIs(t, err, ErrTargetBusy)
	_, _, err = h.svc.Copy(ctx, h.platform.sourceID, target, reconcile.CopyOptions{})
	assert.ErrorIs(t, err, ErrTargetBusy)

	release()
	_, err = h.svc.Load(ctx, "b1", target, h.svc.DefaultLoadOptions())
	assert.NoError(t, err)
}

func TestService_CopyUsesConfiguredDepth(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	target := h.platform.client.AddGuild("Target")

	report, ids, err := h.svc.Copy(ctx, h.platform.sourceID, target, reconcile.CopyOptions{})
	require.NoError(t, err)
	assert.Equal(t, testConfig.CopyDepth, report.Count(reconcile.KindMessage, reconcile.ActionCreated))

	relayed := h.platform.client.Relayed(ids[h.platform.modChatID])
	require.Len(t, relayed, testConfig.CopyDepth)
	assert.Equal(t, "m25", relayed[0].Content)
	assert.Equal(t, "m29", relayed[4].Content)
}

type countingRecorder struct {
	mu sync.Mutex
	n  int
}

func (r *countingRecorder) Observe(string, string) {
	r.mu.Lock()
	r.n++
	r.mu.Unlock()
}

func TestService_RecorderSeesOutcomes(t *testing.T) {
	store, _ := newStorage()
	p := newPlatform()
	rec := &countingRecorder{}
	svc, err := NewService(Params{
		Storage:   store,
		Bucket:    testBucket,
		Repo:      newSQLiteRepo(t),
		Guilds:    p.client,
		Sanitizer: guild.SanitizerFunc(func(s string) string { return s }),
		Recorder:  rec,
		Config:    testConfig,
	})
	require.NoError(t, err)

	target := p.client.AddGuild("Target")
	report, _, err := svc.Copy(context.Background(), p.sourceID, target, reconcile.CopyOptions{})
	require.NoError(t, err)
	assert.Equal(t, len(report.Outcomes), rec.n)
}

func TestRepository_ListError(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	sqlMock.ExpectQuery("SELECT \\* FROM `backups`").WillReturnError(errors.New("gone away"))

	_, err := NewRepository(db).List(context.Background(), "1")
	assert.ErrorContains(t, err, "gone away")
}

func TestRepository_FindMapsMissingRow(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	sqlMock.ExpectQuery("SELECT \\* FROM `backups`").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewRepository(db).Find(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
}
