package lexicon

import "fmt"

// SynonymEntry maps an everyday expression onto the statutory term the
// indexed corpus actually uses.
type SynonymEntry struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

// PromptLine renders the entry the way the rewrite prompt lists dictionary
// rules.
func (e SynonymEntry) PromptLine() string {
	return fmt.Sprintf("%s을 나타내는 표현 -> %s", e.Pattern, e.Replacement)
}

// Dictionary provides the static synonym table consulted by the query
// rewriter. The corpus is written in statutory language, so questions about
// "사람" retrieve far better once phrased as "거주자".
func Dictionary() []SynonymEntry {
	return []SynonymEntry{
		{Pattern: "사람", Replacement: "거주자"},
	}
}

// FewShotExample is a static question/answer pair spliced into the answer
// prompt for style priming. Deliberately a distinct type from chat.Turn so
// examples can never leak into a real transcript.
type FewShotExample struct {
	Input  string `json:"input"`
	Answer string `json:"answer"`
}

// FewShots provides the seed examples that bias the answer generator toward
// the statute-citation answer format.
func FewShots() []FewShotExample {
	return []FewShotExample{
		{
			Input: "소득세법에서 거주자는 어떻게 정의되나요?",
			Answer: "소득세법 제1조의2에 따르면, 거주자는 국내에 주소를 두거나 183일 이상 거소를 둔 개인을 말합니다. " +
				"거주자 여부에 따라 과세 대상 소득의 범위가 달라집니다.",
		},
		{
			Input: "근로소득에는 어떤 것들이 포함되나요?",
			Answer: "소득세법 제20조에 따르면, 근로소득은 근로를 제공함으로써 받는 봉급·급료·상여·수당 등의 급여를 포함합니다. " +
				"법인의 주주총회 결의에 따라 상여로 받는 소득도 근로소득에 해당합니다.",
		},
		{
			Input: "이자소득의 수입시기는 언제인가요?",
			Answer: "소득세법 시행령 제45조에 따르면, 이자소득의 수입시기는 원칙적으로 약정에 따른 이자 지급일입니다. " +
				"약정일 전에 실제로 지급받은 경우에는 그 지급일이 수입시기가 됩니다.",
		},
	}
}
