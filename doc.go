/*
go-posemon is a real-time movement assessment monitor.  It takes body
landmarks produced by a pose estimation model for each video frame, measures
the angle formed at a chosen joint and classifies the subject's posture as
Standing, Squat (Good Depth) or Neutral for overlay on the video.

The root package holds the per frame classification core.  It is pure and
stateless, every frame is assessed independently from the landmarks given.
The pose, video, render and monitor subpackages wire the core to an RKNN
pose model, a camera or file source and the display.

See cmd/posemon for the monitor application.
*/
package posemon
