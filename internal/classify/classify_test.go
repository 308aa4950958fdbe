package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantCtx Context
		wantCue Cue
	}{
		{"arrow assignment", "5   result ← true", Code, CueAssignment},
		{"ascii arrow", "x <- x + 1", Code, CueAssignment},
		{"walrus", "count := 0", Code, CueAssignment},
		{"line initial arrow", "← 先頭に戻す", Code, CueAssignment},
		{"comparison", "もし a[i] > max ならば", Code, CueComparison},
		{"comparison without spaces", "i<n", Code, CueComparison},
		{"not equal glyph", "x ≠ 0", Code, CueComparison},
		{"index", "配列[i] の値を出力する", Code, CueIndex},
		{"call", "swap(a, b) を呼び出す", Code, CueCall},
		{"plain prose", "次のプログラムの説明を読んで答えよ。", Prose, CueNone},
		{"blank marker only", "空欄 [ a ] に入れるべき処理はどれか。", Prose, CueNone},
		{"glued arrow is not an assignment", "x←1 のように書く", Prose, CueNone},
		{"arrow inside kagi quotes", "説明文「x ← 1」を参照する", Prose, CueNone},
		{"arrow inside double quotes", `ログに "total ← sum" と出力する`, Prose, CueNone},
		{"empty", "", Prose, CueNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cue := Classify(tt.line)
			assert.Equal(t, tt.wantCtx, ctx)
			assert.Equal(t, tt.wantCue, cue)
			assert.Equal(t, tt.wantCtx, Line(tt.line))
		})
	}
}

func TestClassifyPriority(t *testing.T) {
	// Assignment wins over the comparison and index cues on the same line.
	_, cue := Classify("flag ← a[i] = b[j]")
	assert.Equal(t, CueAssignment, cue)
}

func TestSplitAssignment(t *testing.T) {
	lhs, rhs, ok := SplitAssignment("16.   一時 ← data[i]")
	assert.True(t, ok)
	assert.Equal(t, "一時", lhs)
	assert.Equal(t, "data[i]", rhs)

	lhs, rhs, ok = SplitAssignment(`msg ← "a ← b"`)
	assert.True(t, ok)
	assert.Equal(t, "msg", lhs)
	assert.Equal(t, `"a ← b"`, rhs)

	_, _, ok = SplitAssignment("代入はない")
	assert.False(t, ok)
}

func TestIsCodeBlockLine(t *testing.T) {
	assert.True(t, IsCodeBlockLine("16.   [ a ]"))
	assert.True(t, IsCodeBlockLine("5   return -1"))
	assert.True(t, IsCodeBlockLine("14 return -1"))
	assert.True(t, IsCodeBlockLine("    encrypted[i] ← [ a ]"))
	assert.True(t, IsCodeBlockLine("\tendwhile"))
	assert.False(t, IsCodeBlockLine("1. まず配列を整列する。"))
	assert.False(t, IsCodeBlockLine("空欄 [ a ] に入れるべき処理はどれか。"))
	assert.False(t, IsCodeBlockLine("   "))
}

func TestMaskQuotedPreservesOffsets(t *testing.T) {
	line := `x ← "結果" + 「真」`
	masked := MaskQuoted(line)
	assert.Equal(t, len(line), len(masked))
	assert.NotContains(t, masked, "結果")
	assert.NotContains(t, masked, "真")
	assert.Contains(t, masked, "x ← ")

	unterminated := `5" のディスプレイ`
	assert.Equal(t, unterminated, MaskQuoted(unterminated))
}

func TestStripLineNumber(t *testing.T) {
	assert.Equal(t, "current ← current.next", StripLineNumber("16.   current ← current.next"))
	assert.Equal(t, "return -1", StripLineNumber("5 return -1"))
	assert.Equal(t, "temp", StripLineNumber("temp"))
}
