package assembly_test

import (
	"path/filepath"
	"testing"

	"narrator/internal/assembly"
	"narrator/internal/testsupport"
)

func TestSelectBed(t *testing.T) {
	dir := t.TempDir()
	if bed, err := assembly.SelectBed(filepath.Join(dir, "absent"), "educatif"); err != nil || bed != "" {
		t.Fatalf("expected passthrough for missing dir, got %q %v", bed, err)
	}

	testsupport.WriteBytes(t, filepath.Join(dir, "zz-ambient.mp3"), []byte("x"))
	testsupport.WriteBytes(t, filepath.Join(dir, "notes.txt"), []byte("x"))
	testsupport.WriteBytes(t, filepath.Join(dir, "cinematique", "b.ogg"), []byte("x"))
	testsupport.WriteBytes(t, filepath.Join(dir, "cinematique", "a.m4a"), []byte("x"))
	testsupport.WriteBytes(t, filepath.Join(dir, "Educatif.MP3"), []byte("x"))

	cases := map[string]string{
		"educatif":    filepath.Join(dir, "Educatif.MP3"),
		"cinematique": filepath.Join(dir, "cinematique", "a.m4a"),
		"Cinématique": filepath.Join(dir, "Educatif.MP3"),
		"horreur":     filepath.Join(dir, "Educatif.MP3"),
	}
	for style, want := range cases {
		got, err := assembly.SelectBed(dir, style)
		if err != nil {
			t.Fatalf("SelectBed(%q) returned error: %v", style, err)
		}
		if got != want {
			t.Fatalf("SelectBed(%q) = %q, want %q", style, got, want)
		}
	}
}

func TestTitleLines(t *testing.T) {
	lines := assembly.TitleLines("les secrets de l'égypte ancienne et des pharaons oubliés", "fr", 28)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	if lines[0] != "LES SECRETS DE L'ÉGYPTE" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	for _, line := range lines {
		if len([]rune(line)) > 28 {
			t.Fatalf("line too long: %q", line)
		}
	}
}
