package acquire

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType IdentifierType
		wantNorm string
	}{
		{"arxiv bare", "2301.07041", TypeArxiv, "2301.07041"},
		{"arxiv prefixed", "arXiv:2301.07041", TypeArxiv, "2301.07041"},
		{"arxiv versioned", "2301.07041v2", TypeArxiv, "2301.07041v2"},
		{"arxiv five digit", "2301.12345", TypeArxiv, "2301.12345"},
		{"arxiv old style", "hep-th/9901001v1", TypeArxiv, "hep-th/9901001v1"},
		{"arxiv old style subject class", "math.GT/0309136", TypeArxiv, "math.GT/0309136"},
		{"url https", "https://example.com/paper.pdf", TypeURL, "https://example.com/paper.pdf"},
		{"url http", "http://example.com/paper.pdf", TypeURL, "http://example.com/paper.pdf"},
		{"doi is unknown", "10.1145/1234567.1234568", TypeUnknown, "10.1145/1234567.1234568"},
		{"unknown bare word", "not-an-id", TypeUnknown, "not-an-id"},
		{"unknown empty", "", TypeUnknown, ""},
		{"whitespace trimmed", "  2301.07041  ", TypeArxiv, "2301.07041"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotNorm := Classify(tt.input)
			if gotType != tt.wantType {
				t.Errorf("Classify(%q) type = %v, want %v", tt.input, gotType, tt.wantType)
			}
			if gotNorm != tt.wantNorm {
				t.Errorf("Classify(%q) norm = %q, want %q", tt.input, gotNorm, tt.wantNorm)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name     string
		idType   IdentifierType
		norm     string
		wantSlug string
	}{
		{"arxiv", TypeArxiv, "2301.07041", "2301.07041"},
		{"arxiv old style", TypeArxiv, "hep-th/9901001v1", "hep-th_9901001v1"},
		{"url with filename", TypeURL, "https://example.com/my-paper.pdf", "my-paper"},
		{"url no filename", TypeURL, "https://example.com/", urlHashSlug("https://example.com/")},
		{"unknown", TypeUnknown, "x", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.idType, tt.norm); got != tt.wantSlug {
				t.Errorf("Slug(%v, %q) = %q, want %q", tt.idType, tt.norm, got, tt.wantSlug)
			}
		})
	}
}

func TestPDFURL(t *testing.T) {
	tests := []struct {
		name    string
		idType  IdentifierType
		norm    string
		wantURL string
	}{
		{"arxiv", TypeArxiv, "2301.07041", arxivPDFBase + "2301.07041.pdf"},
		{"url", TypeURL, "https://example.com/a.pdf", "https://example.com/a.pdf"},
		{"unknown", TypeUnknown, "x", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PDFURL(tt.idType, tt.norm); got != tt.wantURL {
				t.Errorf("PDFURL(%v, %q) = %q, want %q", tt.idType, tt.norm, got, tt.wantURL)
			}
		})
	}
}
