// Package assembly renders scene images and narration into the final video.
//
// Assemble runs five ffmpeg steps in order inside the item work directory:
//
//  1. clip_NN.mp4: each still gets a seeded zoompan motion effect for exactly
//     its measured narration duration, muxed with that narration.
//  2. concat.mp4: the clips are joined with the concat demuxer, stream copy.
//  3. captioned.mp4: captions.srt is burned in with a libass force_style.
//  4. mixed.mp4: a looped music bed is mixed under the narration.
//  5. thumbnail.jpg: the first image with a gradient, the title and a badge.
//
// Steps 1 and 2 are fatal. Steps 3 to 5 degrade: a failure is recorded in
// Result.Degraded and the pipeline continues from the last good video, which
// is finally copied to final.mp4.
package assembly
