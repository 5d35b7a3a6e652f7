package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
)

type fakeTransformer struct {
	mu        sync.Mutex
	dir       string
	calls     []domain.TransformConstraints
	failAt    map[int]string // call index -> error reason
	block     chan struct{}
	entered   chan struct{}
	generated []string
}

func newFakeTransformer(t *testing.T) *fakeTransformer {
	return &fakeTransformer{dir: t.TempDir(), failAt: map[int]string{}}
}

func (f *fakeTransformer) Compress(ctx context.Context, path string, c domain.TransformConstraints) domain.ProcessedImage {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, c)
	reason, fail := f.failAt[idx]
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if fail {
		return domain.FailedImage(reason)
	}

	out := filepath.Join(f.dir, fmt.Sprintf("out-%d-%d.jpg", idx, time.Now().UnixNano()))
	if err := os.WriteFile(out, []byte(fmt.Sprintf("jpeg %dx%d", c.MaxWidth, c.MaxHeight)), 0644); err != nil {
		return domain.FailedImage(err.Error())
	}
	f.mu.Lock()
	f.generated = append(f.generated, out)
	f.mu.Unlock()
	return domain.ProcessedImage{URI: out, Width: c.MaxWidth, Height: c.MaxHeight, ByteSize: 10, Success: true}
}

func (f *fakeTransformer) Calls() []domain.TransformConstraints {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TransformConstraints(nil), f.calls...)
}

func (f *fakeTransformer) Generated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.generated...)
}

type putCall struct {
	Namespace   string
	Name        string
	ContentType string
	Data        string
}

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string]map[string][]byte
	puts      []putCall
	removes   int
	failPut   map[string]error
	listErr   error
	removeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]map[string][]byte{}, failPut: map[string]error{}}
}

func (s *fakeStore) PublicURL(namespace, name string) string {
	return "https://cdn.test/" + namespace + "/" + name
}

func (s *fakeStore) Put(ctx context.Context, namespace, name string, r io.Reader, size int64, opts domain.PutOptions) (domain.StoredObject, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.StoredObject{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, putCall{Namespace: namespace, Name: name, ContentType: opts.ContentType, Data: string(data)})
	if err := s.failPut[name]; err != nil {
		return domain.StoredObject{}, err
	}
	if s.objects[namespace] == nil {
		s.objects[namespace] = map[string][]byte{}
	}
	s.objects[namespace][name] = data
	return domain.StoredObject{Path: namespace + "/" + name, PublicURL: s.PublicURL(namespace, name)}, nil
}

func (s *fakeStore) List(ctx context.Context, namespace string) ([]domain.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.ObjectInfo
	for name, data := range s.objects[namespace] {
		out = append(out, domain.ObjectInfo{Name: name, Size: int64(len(data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeStore) Remove(ctx context.Context, namespace string, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removes++
	if s.removeErr != nil {
		return s.removeErr
	}
	for _, n := range names {
		delete(s.objects[namespace], n)
	}
	return nil
}

func (s *fakeStore) Puts() []putCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]putCall(nil), s.puts...)
}

func (s *fakeStore) Names(namespace string) []string {
	objects, _ := s.List(context.Background(), namespace)
	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, o.Name)
	}
	return names
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
	updates  []string
	err      error
	findErr  error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: map[string]*domain.Profile{}}
}

func (p *fakeProfiles) FindByID(ctx context.Context, userID string) (*domain.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.findErr != nil {
		return nil, p.findErr
	}
	pr, ok := p.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	cp := *pr
	return &cp, nil
}

func (p *fakeProfiles) Upsert(ctx context.Context, profile *domain.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	cp := *profile
	p.profiles[profile.ID] = &cp
	return nil
}

func (p *fakeProfiles) UpdateAvatar(ctx context.Context, userID, avatarURL string, updatedAt time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, avatarURL)
	if p.err != nil {
		return p.err
	}
	pr, ok := p.profiles[userID]
	if !ok {
		pr = &domain.Profile{ID: userID}
		p.profiles[userID] = pr
	}
	pr.AvatarURL = avatarURL
	pr.UpdatedAt = updatedAt
	return nil
}

func (p *fakeProfiles) Updates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.updates...)
}

type fakeReconciler struct {
	mu    sync.Mutex
	tasks []domain.ReconcileTask
	err   error
}

func (r *fakeReconciler) PublishReconcileTask(ctx context.Context, task domain.ReconcileTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return r.err
}

var errBoom = errors.New("boom")

// writeSource writes a stand-in source file. Its bytes are never decoded by the fakes.
func writeSource(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "picked.jpg")
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func jpegHandle(t *testing.T) domain.LocalImage {
	path := writeSource(t, 2048)
	return domain.LocalImage{URI: path, Width: 2000, Height: 2000, ByteSize: 2048, MimeType: "image/jpeg"}
}
