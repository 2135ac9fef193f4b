package heroclient

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// maxStagedImageSize mirrors the server's upload cap. The server remains
// authoritative; the local guard only saves a doomed round trip.
const maxStagedImageSize = 5 << 20

var stagedExtAllowed = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// StagedImage is a locally staged, not yet uploaded image
type StagedImage struct {
	LocalID  string
	Filename string
	data     []byte
	release  func()
}

// DisplayImage is one entry of the merged view a form should render: either
// a server-known image or a staged local one.
type DisplayImage struct {
	ID       string // FileID for server images, LocalID for staged ones
	Filename string
	URL      string // empty for staged images
	Staged   bool
}

// CommitFailure records one staged operation that the server rejected
type CommitFailure struct {
	ID       string // LocalID or FileID of the failed item
	Filename string
	Err      error
}

// CommitResult reports the per-item outcomes of a commit. A non-empty Failed
// slice is a soft warning: everything that could be applied was applied.
type CommitResult struct {
	Removed []string
	Added   []string
	Failed  []CommitFailure
}

// StagingSession accumulates image edits for one hero form. Nothing touches
// the network until Commit; staged state lives entirely in the session.
//
// A session is owned by a single editing workflow and is not safe for
// concurrent use.
type StagingSession struct {
	client       *Client
	serverImages []Image
	stagedAdds   []*StagedImage
	removals     map[string]bool // FileID -> pending removal
}

// NewStagingSession starts a session seeded with the hero's current images.
// Pass nil serverImages when creating a brand-new hero.
func NewStagingSession(client *Client, serverImages []Image) *StagingSession {
	images := make([]Image, len(serverImages))
	copy(images, serverImages)
	return &StagingSession{
		client:       client,
		serverImages: images,
		removals:     make(map[string]bool),
	}
}

// StageAdd stages an image for upload. release, if non-nil, is invoked
// exactly once when the staged entry is dropped for any reason (commit,
// discard, or a StageRemove of this entry); it is the hook for freeing a
// local preview resource.
func (s *StagingSession) StageAdd(filename string, data []byte, release func()) (*StagedImage, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !stagedExtAllowed[ext] {
		return nil, fmt.Errorf("unsupported image extension: %q", ext)
	}
	if len(data) > maxStagedImageSize {
		return nil, fmt.Errorf("image exceeds the %d byte limit", maxStagedImageSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty")
	}

	staged := &StagedImage{
		LocalID:  uuid.NewString(),
		Filename: filename,
		data:     data,
		release:  release,
	}
	s.stagedAdds = append(s.stagedAdds, staged)
	return staged, nil
}

// StageRemove stages the removal of a display entry. A staged add is dropped
// immediately and its preview released; a server image is marked for removal
// at commit.
func (s *StagingSession) StageRemove(id string) bool {
	for i, staged := range s.stagedAdds {
		if staged.LocalID == id {
			s.stagedAdds = append(s.stagedAdds[:i], s.stagedAdds[i+1:]...)
			releaseStaged(staged)
			return true
		}
	}

	for _, img := range s.serverImages {
		if img.FileID == id {
			s.removals[id] = true
			return true
		}
	}
	return false
}

// DisplayList returns what the form should render: server images that are
// not pending removal, in server order, followed by staged adds in staging
// order.
func (s *StagingSession) DisplayList() []DisplayImage {
	list := make([]DisplayImage, 0, len(s.serverImages)+len(s.stagedAdds))
	for _, img := range s.serverImages {
		if s.removals[img.FileID] {
			continue
		}
		list = append(list, DisplayImage{
			ID:       img.FileID,
			Filename: img.Filename,
			URL:      img.URL,
		})
	}
	for _, staged := range s.stagedAdds {
		list = append(list, DisplayImage{
			ID:       staged.LocalID,
			Filename: staged.Filename,
			Staged:   true,
		})
	}
	return list
}

// Commit reconciles the staged state against the server: removals first,
// then adds, each batch concurrently. Failures are recorded per item and do
// not stop the rest of the batch; there is no rollback. All staged state is
// cleared and previews released on every exit path.
func (s *StagingSession) Commit(ctx context.Context, heroID string) (*CommitResult, error) {
	result := &CommitResult{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for fileID := range s.removals {
		wg.Add(1)
		go func(fileID string) {
			defer wg.Done()
			_, err := s.client.RemoveImage(ctx, heroID, fileID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, CommitFailure{ID: fileID, Err: err})
				return
			}
			result.Removed = append(result.Removed, fileID)
		}(fileID)
	}
	wg.Wait()

	for _, staged := range s.stagedAdds {
		wg.Add(1)
		go func(staged *StagedImage) {
			defer wg.Done()
			_, err := s.client.AddImage(ctx, heroID, staged.Filename, bytes.NewReader(staged.data))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, CommitFailure{ID: staged.LocalID, Filename: staged.Filename, Err: err})
				return
			}
			result.Added = append(result.Added, staged.LocalID)
		}(staged)
	}
	wg.Wait()

	s.reset()
	return result, nil
}

// Discard drops all staged state and releases previews without touching the
// server.
func (s *StagingSession) Discard() {
	s.reset()
}

func (s *StagingSession) reset() {
	for _, staged := range s.stagedAdds {
		releaseStaged(staged)
	}
	s.stagedAdds = nil
	s.removals = make(map[string]bool)
}

func releaseStaged(staged *StagedImage) {
	if staged.release != nil {
		staged.release()
		staged.release = nil
	}
}
