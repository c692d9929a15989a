package main

import "testing"

func TestSplitChunks(t *testing.T) {
	text := "제1조 목적\n이 법은 소득세에 관한 사항을 정한다.\n\n\n제2조 정의\n거주자란 국내에 주소를 둔 개인을 말한다.\n\n"

	chunks := splitChunks(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != "제1조 목적\n이 법은 소득세에 관한 사항을 정한다." {
		t.Fatalf("unexpected first chunk: %q", chunks[0])
	}
}

func TestSplitChunksEmpty(t *testing.T) {
	if got := splitChunks("\n\n  \n\n"); len(got) != 0 {
		t.Fatalf("expected no chunks, got %d", len(got))
	}
}
