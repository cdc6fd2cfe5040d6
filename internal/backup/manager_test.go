package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	content  string
	restored []string
	fail     error
}

func (f *fakeStore) BackupTo(_ context.Context, dest string) error {
	if f.fail != nil {
		return f.fail
	}
	return os.WriteFile(dest, []byte(f.content), 0644)
}

func (f *fakeStore) RestoreFrom(_ context.Context, src string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	f.restored = append(f.restored, string(data))
	return nil
}

type fakeUploader struct {
	names []string
}

func (u *fakeUploader) Upload(_ context.Context, name, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	u.names = append(u.names, name)
	return nil
}

func newTestManager(t *testing.T, max int, up Uploader) (*Manager, *fakeStore, *time.Time) {
	t.Helper()
	store := &fakeStore{content: "snapshot"}
	m, err := NewManager(Config{Enabled: true, Dir: t.TempDir(), Interval: time.Hour, MaxBackups: max}, store, up)
	require.NoError(t, err)
	clock := time.Date(2025, 5, 1, 10, 0, 0, 0, time.Local)
	m.now = func() time.Time { return clock }
	return m, store, &clock
}

func TestCreate(t *testing.T) {
	up := &fakeUploader{}
	m, _, _ := newTestManager(t, 7, up)

	info, err := m.Create(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "moneytrack_backup_20250501_100000.db", info.Filename)
	assert.Equal(t, int64(len("snapshot")), info.Size)
	assert.Equal(t, []string{info.Filename}, up.names)

	again, err := m.Create(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "moneytrack_backup_20250501_100000_1.db", again.Filename)

	custom, err := m.Create(context.Background(), "before-import")
	require.NoError(t, err)
	assert.Equal(t, "before-import_20250501_100000.db", custom.Filename)

	_, err = m.Create(context.Background(), "../escape")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCreateFailureRemovesFile(t *testing.T) {
	m, store, _ := newTestManager(t, 7, nil)
	store.fail = errors.New("disk full")

	_, err := m.Create(context.Background(), "")
	require.Error(t, err)
	list, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRetention(t *testing.T) {
	m, _, clock := newTestManager(t, 3, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := m.Create(ctx, "")
		require.NoError(t, err)
		*clock = clock.Add(time.Hour)
	}
	_, err := m.Create(ctx, "manual-keep")
	require.NoError(t, err)

	list, err := m.List()
	require.NoError(t, err)
	var names []string
	for _, b := range list {
		names = append(names, b.Filename)
	}
	assert.ElementsMatch(t, []string{
		"moneytrack_backup_20250501_140000.db",
		"moneytrack_backup_20250501_130000.db",
		"moneytrack_backup_20250501_120000.db",
		"manual-keep_20250501_150000.db",
	}, names)
}

func TestRestore(t *testing.T) {
	m, store, clock := newTestManager(t, 7, nil)
	ctx := context.Background()

	b, err := m.Create(ctx, "")
	require.NoError(t, err)
	*clock = clock.Add(time.Minute)

	pre, err := m.Restore(ctx, b.Filename)
	require.NoError(t, err)
	assert.Equal(t, "pre_restore_20250501_100100.db", pre.Filename)
	assert.Equal(t, []string{"snapshot"}, store.restored)

	_, err = m.Restore(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = m.Restore(ctx, "moneytrack_backup_20990101_000000.db")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatus(t *testing.T) {
	m, _, _ := newTestManager(t, 5, nil)

	st, err := m.Status()
	require.NoError(t, err)
	assert.True(t, st.Enabled)
	assert.Equal(t, 1.0, st.IntervalHours)
	assert.Equal(t, 5, st.MaxBackups)
	assert.Zero(t, st.TotalBackups)
	assert.Nil(t, st.LatestBackup)

	b, err := m.Create(context.Background(), "")
	require.NoError(t, err)
	st, err = m.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalBackups)
	require.NotNil(t, st.LatestBackup)
	assert.Equal(t, b.Filename, st.LatestBackup.Filename)
}

func TestRun(t *testing.T) {
	store := &fakeStore{content: "x"}
	m, err := NewManager(Config{Enabled: true, Dir: t.TempDir(), Interval: 10 * time.Millisecond, MaxBackups: 2}, store, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		list, err := m.List()
		return err == nil && len(list) > 0
	}, 2*time.Second, 10*time.Millisecond)

	st, err := m.Status()
	require.NoError(t, err)
	assert.True(t, st.ThreadRunning)

	cancel()
	require.NoError(t, <-done)
	st, err = m.Status()
	require.NoError(t, err)
	assert.False(t, st.ThreadRunning)
}

func TestRunDisabled(t *testing.T) {
	m, err := NewManager(Config{Dir: filepath.Join(t.TempDir(), "b")}, &fakeStore{}, nil)
	require.NoError(t, err)
	assert.NoError(t, m.Run(context.Background()))
}

func TestGCSObjectName(t *testing.T) {
	u := &GCSUploader{bucket: "b", prefix: "ledger/backups"}
	assert.Equal(t, "ledger/backups/x.db", u.ObjectName("x.db"))
	u.prefix = ""
	assert.Equal(t, "x.db", u.ObjectName("x.db"))
}
