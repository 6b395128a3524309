package memory

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ObjectStore keeps uploaded lesson videos and section files in memory.
// URLs it hands out use the mem:// scheme and only identify the object.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string][]byte)}
}

func (o *ObjectStore) put(key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = data
	return nil
}

func (o *ObjectStore) url(key string) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if _, ok := o.objects[key]; !ok {
		return "", fmt.Errorf("object %q does not exist", key)
	}
	return "mem://" + key, nil
}

func (o *ObjectStore) remove(key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}

// Has reports whether key is stored.
func (o *ObjectStore) Has(key string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.objects[key]
	return ok
}

func (o *ObjectStore) UploadVideo(_ context.Context, lessonID uuid.UUID, filename string, r io.Reader, _ int64, _ string) (string, error) {
	key := fmt.Sprintf("lessons/%s/video-%s%s", lessonID, uuid.NewString(), filepath.Ext(filename))
	return key, o.put(key, r)
}

func (o *ObjectStore) VideoURL(_ context.Context, key string) (string, error) { return o.url(key) }

func (o *ObjectStore) DeleteVideo(_ context.Context, key string) error { return o.remove(key) }

func (o *ObjectStore) UploadFile(_ context.Context, sectionID, resourceID uuid.UUID, filename string, r io.Reader, _ int64, _ string) (string, error) {
	key := fmt.Sprintf("sections/%s/%s%s", sectionID, resourceID, filepath.Ext(filename))
	return key, o.put(key, r)
}

func (o *ObjectStore) FileURL(_ context.Context, key, _ string) (string, error) { return o.url(key) }

func (o *ObjectStore) DeleteFile(_ context.Context, key string) error { return o.remove(key) }
