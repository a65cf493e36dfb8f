// Package generation turns topics into scripts, prompts into images and
// narration into measured audio.
//
// Every provider call goes through Policy.Do. A failure classified as fatal by
// services.IsRetryable is returned after the first call; anything else is
// retried with the configured delays until the attempt budget runs out, at
// which point the last error is wrapped with services.ErrTransient.
//
// Generators validate their outputs before returning: scripts with
// go-playground/validator, images and audio by file signature, and audio
// duration by measuring the written file.
package generation
