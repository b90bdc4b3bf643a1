package service

import (
	"testing"

	"github.com/huaiminqin/collection-self/internal/entity"
)

func TestApplyNamingFormat(t *testing.T) {
	member := &entity.Member{StudentID: "20250001", Name: "张三", Gender: "男", Dormitory: "1号楼101"}

	got := ApplyNamingFormat("{student_id}_{name}", member, ".pdf")
	if got != "20250001_张三.pdf" {
		t.Errorf("Expected 20250001_张三.pdf, got %s", got)
	}

	got = ApplyNamingFormat("{dormitory}-{name}", member, "")
	if got != "1号楼101-张三" {
		t.Errorf("Expected 1号楼101-张三, got %s", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	got := SanitizeFilename(`a/b\c:d*e?f<g>h|i"j`)
	for _, c := range got {
		switch c {
		case '/', '\\', ':', '*', '?', '<', '>', '|', '"':
			t.Fatalf("Illegal char %c remains in %s", c, got)
		}
	}
}

func TestValidateNamingFormat(t *testing.T) {
	if err := ValidateNamingFormat("{student_id}_{name}"); err != nil {
		t.Errorf("Valid format rejected: %v", err)
	}
	if err := ValidateNamingFormat(""); !IsCode(err, CodeValidation) {
		t.Errorf("Empty format should be rejected, got %v", err)
	}
	if err := ValidateNamingFormat("plain-name"); !IsCode(err, CodeValidation) {
		t.Errorf("Format without variables should be rejected, got %v", err)
	}
	if err := ValidateNamingFormat("{student_id}_{klass}"); !IsCode(err, CodeValidation) {
		t.Errorf("Unknown variable should be rejected, got %v", err)
	}
}

func TestUniqueName(t *testing.T) {
	used := map[string]bool{}
	first := uniqueName("folder/文本.txt", used)
	second := uniqueName("folder/文本.txt", used)
	third := uniqueName("folder/文本.txt", used)

	if first != "folder/文本.txt" {
		t.Errorf("First name should be unchanged, got %s", first)
	}
	if second != "folder/文本_1.txt" {
		t.Errorf("Expected folder/文本_1.txt, got %s", second)
	}
	if third != "folder/文本_2.txt" {
		t.Errorf("Expected folder/文本_2.txt, got %s", third)
	}
}
