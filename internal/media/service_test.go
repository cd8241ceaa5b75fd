package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askcraft/askcraft-web/internal/platform/httpx"
	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/internal/shared"
)

type memoryRepo struct {
	mu   sync.Mutex
	rows map[string]Item
}

func newMemoryRepo(seed ...Item) *memoryRepo {
	r := &memoryRepo{rows: map[string]Item{}}
	for _, it := range seed {
		r.rows[it.ID] = it
	}
	return r
}

func (r *memoryRepo) sorted() []Item {
	out := make([]Item, 0, len(r.rows))
	for _, it := range r.rows {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *memoryRepo) List(_ context.Context, q ListQuery) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	start := 0
	if q.Cursor != "" {
		start = len(all)
		for i, it := range all {
			if it.ID == q.Cursor {
				start = i + 1
				break
			}
		}
	}
	out := []Item{}
	for _, it := range all[start:] {
		if q.Type != "" && it.Type != q.Type {
			continue
		}
		if len(out) == q.Limit {
			break
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &it, nil
}

func (r *memoryRepo) Create(_ context.Context, in NewItem) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.rows {
		if it.URL == in.URL {
			return nil, fmt.Errorf("url: %w", shared.ErrConflict)
		}
	}
	it := Item{ID: uuid.NewString(), Type: in.Type, URL: in.URL, Caption: in.Caption, UploaderID: in.UploaderID, CreatedAt: time.Now()}
	r.rows[it.ID] = it
	return &it, nil
}

func (r *memoryRepo) UpdateCaption(_ context.Context, id, caption string) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	it.Caption = caption
	r.rows[id] = it
	return &it, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memoryRepo) UploaderOf(ctx context.Context, id string) (string, error) {
	it, err := r.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return it.UploaderID, nil
}

type fakeBlobs struct {
	prefix   string
	puts     map[string][]byte
	lastBody io.ReadSeeker
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{prefix: "https://cdn.askcraft.test/", puts: map[string][]byte{}}
}

func (f *fakeBlobs) Put(_ context.Context, key, _ string, body io.ReadSeeker, _ int64) (string, error) {
	f.lastBody = body
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.puts[key] = data
	return f.prefix + key, nil
}

func (f *fakeBlobs) KeyFor(url string) (string, bool) {
	if !strings.HasPrefix(url, f.prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, f.prefix), true
}

type purgeSpy struct {
	keys []string
	err  error
}

func (p *purgeSpy) EnqueuePurge(_ context.Context, key string) error {
	p.keys = append(p.keys, key)
	return p.err
}

var (
	adminP  = rbac.Principal{AccountID: "admin-1", Role: rbac.RoleAdmin}
	editorP = rbac.Principal{AccountID: "editor-1", Role: rbac.RoleEditor}
	userP   = rbac.Principal{AccountID: "user-1", Role: rbac.RoleUser}
)

func ownershipFixture() *memoryRepo {
	now := time.Now()
	return newMemoryRepo(
		Item{ID: "m1", Type: TypeImage, URL: "https://x.test/m1.jpg", UploaderID: "editor-1", CreatedAt: now},
		Item{ID: "m2", Type: TypeImage, URL: "https://x.test/m2.jpg", UploaderID: "editor-2", CreatedAt: now.Add(time.Second)},
	)
}

func TestEditorMediaOwnership(t *testing.T) {
	svc := NewService(ownershipFixture(), nil, Options{})
	ctx := context.Background()
	caption := "Reupholstered armchair"
	req := UpdateMediaRequest{Caption: &caption}

	it, err := svc.UpdateCaption(ctx, editorP, "m1", req)
	require.NoError(t, err)
	assert.Equal(t, caption, it.Caption)

	_, err = svc.UpdateCaption(ctx, editorP, "m2", req)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	it, err = svc.UpdateCaption(ctx, adminP, "m2", req)
	require.NoError(t, err)
	assert.Equal(t, caption, it.Caption)

	_, err = svc.UpdateCaption(ctx, userP, "m1", req)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.UpdateCaption(ctx, editorP, "m404", req)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateMediaChecks(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, Options{})
	ctx := context.Background()

	_, err := svc.Create(ctx, editorP, CreateMediaRequest{Type: "image", URL: "https://x.test/clip.mp4?v=1"})
	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is not an image", verr.Fields["url"])

	_, err = svc.Create(ctx, editorP, CreateMediaRequest{Type: "video", URL: "https://x.test/photo.PNG"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	it, err := svc.Create(ctx, editorP, CreateMediaRequest{Type: "video", URL: "https://x.test/tour.webm", Caption: " Workshop "})
	require.NoError(t, err)
	assert.Equal(t, "Workshop", it.Caption)
	assert.Equal(t, "editor-1", it.UploaderID)

	_, err = svc.Create(ctx, adminP, CreateMediaRequest{Type: "video", URL: "https://x.test/tour.webm"})
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestListCursorPagination(t *testing.T) {
	base := time.Now()
	var seed []Item
	for i := 0; i < 5; i++ {
		typ := TypeImage
		if i%2 == 1 {
			typ = TypeVideo
		}
		seed = append(seed, Item{ID: uuid.NewString(), Type: typ, URL: fmt.Sprintf("u%d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	svc := NewService(newMemoryRepo(seed...), nil, Options{})
	ctx := context.Background()

	first, err := svc.List(ctx, "", 2, "")
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, seed[4].ID, first.Items[0].ID)
	require.NotNil(t, first.NextCursor)

	second, err := svc.List(ctx, "", 2, *first.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, seed[2].ID, second.Items[0].ID)
	require.NotNil(t, second.NextCursor)

	last, err := svc.List(ctx, "", 2, *second.NextCursor)
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
	assert.Nil(t, last.NextCursor)

	videos, err := svc.List(ctx, "video", DefaultLimit, "")
	require.NoError(t, err)
	assert.Len(t, videos.Items, 2)

	one, err := svc.List(ctx, "", 0, "")
	require.NoError(t, err)
	assert.Len(t, one.Items, 1)
	assert.NotNil(t, one.NextCursor)

	all, err := svc.List(ctx, "bogus", 500, "")
	require.NoError(t, err)
	assert.Len(t, all.Items, 5)

	_, err = svc.List(ctx, "", 2, "not-a-uuid")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 1, clampLimit(0))
	assert.Equal(t, 1, clampLimit(-4))
	assert.Equal(t, MaxLimit, clampLimit(51))
	assert.Equal(t, 7, clampLimit(7))
}

func TestDeleteSchedulesPurge(t *testing.T) {
	blobs := newFakeBlobs()
	purge := &purgeSpy{}
	repo := newMemoryRepo(
		Item{ID: "own", Type: TypeImage, URL: blobs.prefix + "media/2026/01/01/a.png", UploaderID: "editor-1"},
		Item{ID: "ext", Type: TypeImage, URL: "https://elsewhere.test/b.png", UploaderID: "editor-1"},
	)
	svc := NewService(repo, nil, Options{Blobs: blobs, Purge: purge})
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, editorP, "own"))
	require.NoError(t, svc.Delete(ctx, editorP, "ext"))
	assert.Equal(t, []string{"media/2026/01/01/a.png"}, purge.keys)
	assert.ErrorIs(t, svc.Delete(ctx, editorP, "own"), shared.ErrNotFound)
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func TestUpload(t *testing.T) {
	blobs := newFakeBlobs()
	svc := NewService(newMemoryRepo(), nil, Options{Blobs: blobs, MaxUpload: 1024})
	svc.now = func() time.Time { return time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 600)...)
	src := bytes.NewReader(payload)
	res, err := svc.Upload(ctx, editorP, src, int64(len(payload)))
	require.NoError(t, err)
	assert.Same(t, src, blobs.lastBody)
	assert.Equal(t, TypeImage, res.Type)
	assert.Equal(t, "image/png", res.ContentType)
	assert.True(t, strings.HasPrefix(res.URL, blobs.prefix+"media/2026/05/04/"))
	assert.True(t, strings.HasSuffix(res.URL, ".png"))
	key, _ := blobs.KeyFor(res.URL)
	assert.Equal(t, payload, blobs.puts[key])

	_, err = svc.Upload(ctx, editorP, strings.NewReader("plain text"), 10)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Upload(ctx, editorP, bytes.NewReader(make([]byte, 2048)), 2048)
	assert.ErrorIs(t, err, shared.ErrValidation)
}
