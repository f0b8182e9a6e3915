package server

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/arcam/internal/calib"
	"github.com/ayusman/arcam/internal/pose"
)

// DefaultFeedInterval limits how often the render loop publishes (~15 FPS).
const DefaultFeedInterval = 66 * time.Millisecond

// PoseUpdate is the per-frame tracking state sent to pose clients.
type PoseUpdate struct {
	Frame     int            `json:"frame"`
	Found     bool           `json:"found"`
	Corners   []calib.Point2 `json:"corners,omitempty"`
	Pose      *pose.Pose     `json:"pose,omitempty"`
	Filter    string         `json:"filter"`
	Timestamp int64          `json:"timestamp"`
}

// Feed is the latest frame and pose published by the render loop. It is the
// only state the HTTP handlers share with the loop.
type Feed struct {
	mu       sync.RWMutex
	interval time.Duration
	last     time.Time
	jpeg     []byte
	update   PoseUpdate
	seq      uint64
}

// NewFeed creates a feed that accepts at most one publish per interval.
func NewFeed(interval time.Duration) *Feed {
	if interval <= 0 {
		interval = DefaultFeedInterval
	}
	return &Feed{interval: interval}
}

// Interval returns the minimum time between publishes.
func (f *Feed) Interval() time.Duration {
	return f.interval
}

// Due reports whether enough time has passed since the last publish.
func (f *Feed) Due(now time.Time) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return now.Sub(f.last) >= f.interval
}

// Publish encodes frame as JPEG and stores it with update.
func (f *Feed) Publish(frame gocv.Mat, update PoseUpdate) error {
	if frame.Empty() {
		return fmt.Errorf("publish: empty frame")
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	f.PublishJPEG(append([]byte(nil), buf.GetBytes()...), update)
	return nil
}

// PublishJPEG stores an already encoded frame with update.
func (f *Feed) PublishJPEG(jpeg []byte, update PoseUpdate) {
	if update.Timestamp == 0 {
		update.Timestamp = time.Now().UnixMilli()
	}

	f.mu.Lock()
	f.jpeg = jpeg
	f.update = update
	f.seq++
	f.last = time.Now()
	f.mu.Unlock()
}

// Frame returns the latest JPEG and its sequence number. Zero means nothing
// has been published yet.
func (f *Feed) Frame() ([]byte, uint64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.jpeg, f.seq
}

// Pose returns the latest pose update and its sequence number.
func (f *Feed) Pose() (PoseUpdate, uint64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.update, f.seq
}
