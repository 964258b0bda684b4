package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDocumentTypeDetection(t *testing.T) {
	tests := []struct {
		name   string
		isText bool
		isPDF  bool
		mime   string
	}{
		{"jd.txt", true, false, MIMETypeText},
		{"JD.TXT", true, false, MIMETypeText},
		{"resume.pdf", false, true, MIMETypePDF},
		{"Resume.PDF", false, true, MIMETypePDF},
		{"resume.docx", false, false, MIMETypeText},
		{"jd.text", false, false, MIMETypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTextFile(tt.name); got != tt.isText {
				t.Errorf("IsTextFile(%q) = %v, want %v", tt.name, got, tt.isText)
			}
			if got := IsPDFFile(tt.name); got != tt.isPDF {
				t.Errorf("IsPDFFile(%q) = %v, want %v", tt.name, got, tt.isPDF)
			}
			if got := MIMEType(tt.name); got != tt.mime {
				t.Errorf("MIMEType(%q) = %q, want %q", tt.name, got, tt.mime)
			}
		})
	}
}

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "jd.txt")
	if err := os.WriteFile(file, []byte("job"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := ValidateInputFile(file); err != nil {
		t.Errorf("Expected valid file, got %v", err)
	}
	if err := ValidateInputFile(""); err == nil {
		t.Error("Expected error for empty filename")
	}
	if err := ValidateInputFile(dir); err == nil {
		t.Error("Expected error for directory")
	}
	if err := ValidateInputFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := map[int64]string{
		512:              "512 B",
		2048:             "2.0 KB",
		10 * 1024 * 1024: "10.0 MB",
	}
	for size, want := range tests {
		if got := FormatFileSize(size); got != want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", size, got, want)
		}
	}
}
