package backup

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"testing"

	"guild-backup/core/database"
	"guild-backup/core/guild"
	"guild-backup/core/guild/fake"
	"guild-backup/core/storage/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const testBucket = "test-bucket"

var testConfig = Config{
	ChatlogDepth: 100,
	ReplayDepth:  20,
	CopyDepth:    5,
	CacheSize:    8,
	ObjectPrefix: "backups",
}

// objectStore records uploads made through a storage mock.
type objectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (o *objectStore) get(key string) []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.objects[key]
}

func newStorage() (*mocks.Client, *objectStore) {
	m := new(mocks.Client)
	store := &objectStore{objects: make(map[string][]byte)}
	m.On("PutObject", mock.Anything, testBucket, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			data, _ := io.ReadAll(args.Get(3).(io.Reader))
			store.mu.Lock()
			store.objects[args.String(2)] = data
			store.mu.Unlock()
		}).
		Return(minio.UploadInfo{}, nil)
	return m, store
}

// serveObject makes GetObject return data for key exactly once.
func serveObject(m *mocks.Client, key string, data []byte) {
	m.On("GetObject", mock.Anything, testBucket, key, mock.Anything).
		Return(io.NopCloser(bytes.NewReader(data)), nil).Once()
}

func newSQLiteRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	repo := NewRepository(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

// platform is a fake platform with one populated source guild.
type platform struct {
	client    *fake.Client
	sourceID  string
	modChatID string
}

func newPlatform() platform {
	c := fake.New()
	gid := c.AddGuild("Source")
	p := platform{client: c, sourceID: gid}

	modID := c.SeedRole(gid, guild.Role{Name: "Mod", Position: 1, Permissions: 8})
	staff := c.SeedChannel(gid, guild.Channel{Type: guild.ChannelCategory, Name: "Staff"})
	p.modChatID = c.SeedChannel(gid, guild.Channel{Type: guild.ChannelText, Name: "mod-chat", ParentID: staff})
	c.SeedChannel(gid, guild.Channel{Type: guild.ChannelText, Name: "general", Position: 1})

	alice := guild.User{ID: "501", Name: "alice", Discriminator: "0001"}
	bob := guild.User{ID: "502", Name: "bob", Discriminator: "0002"}
	c.SeedMember(gid, guild.Member{User: alice, RoleIDs: []string{modID}})
	c.SeedMember(gid, guild.Member{User: bob})
	for i := 0; i < 30; i++ {
		text := fmt.Sprintf("m%d", i)
		c.SeedMessages(p.modChatID, guild.Message{Content: text, CleanContent: text, Author: alice})
	}
	return p
}

type harness struct {
	svc      *Service
	storage  *mocks.Client
	objects  *objectStore
	platform platform
	repo     *Repository
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store, objects := newStorage()
	p := newPlatform()
	repo := newSQLiteRepo(t)
	return harness{
		svc:      newTestService(t, store, repo, p.client),
		storage:  store,
		objects:  objects,
		platform: p,
		repo:     repo,
	}
}

func newTestService(t *testing.T, store *mocks.Client, repo *Repository, client guild.Client) *Service {
	t.Helper()
	svc, err := NewService(Params{
		Storage: store,
		Bucket:  testBucket,
		Repo:    repo,
		Guilds:  client,
		Config:  testConfig,
	})
	require.NoError(t, err)

	var mu sync.Mutex
	n := 0
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("b%d", n)
	}
	return svc
}
