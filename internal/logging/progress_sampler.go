package logging

import "strings"

// ProgressSampler suppresses repetitive frame progress logs while emitting
// when a new video starts or the completion percentage crosses a bucket.
type ProgressSampler struct {
	bucketSize float64
	lastVideo  string
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits every bucketSize percent
// (default 10%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether progress for video should be logged. A negative
// percent means the frame total is unknown and only video changes emit.
func (s *ProgressSampler) ShouldLog(video string, percent float64) bool {
	if s == nil {
		return true
	}
	video = strings.TrimSpace(video)
	emit := false
	if video != "" && video != s.lastVideo {
		s.lastVideo = video
		s.lastBucket = -1
		emit = true
	}
	if percent >= 0 {
		if percent > 100 {
			percent = 100
		}
		bucket := int(percent / s.bucketSize)
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastVideo = ""
	s.lastBucket = -1
}
