// Package media decodes source videos into raw RGB24 frames and encodes
// redacted frames back into a video file.
//
// The Codec interface is the boundary the redaction pipeline depends on.
// FFmpeg implements it by streaming rawvideo through ffmpeg subprocess pipes
// after probing the source with ffprobe. Decoders hold exactly one frame
// buffer which is reused between calls to Next, so memory stays bounded no
// matter how long the video is.
//
// Subprocesses are started detached from the caller's cancellation so a
// cancelled batch never leaves a truncated container behind; callers stop
// feeding frames and then call Finish.
package media
