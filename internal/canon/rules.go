package canon

// DefaultRules returns the built-in rule table in application order. More specific
// rules come first; within a rule the canonicalizer tries longer forms first.
func DefaultRules() []Rule {
	return []Rule{
		// Storage identifiers.
		{Family: FamilyStorage, Canonical: "temp", Forms: []string{"一時ポインタ", "一時退避", "一時変数", "一時"}},
		{Family: FamilyStorage, Canonical: "result", Forms: []string{"結果"}},
		{Family: FamilyStorage, Canonical: "count", Forms: []string{"カウンター", "カウント", "カウンタ"}},
		{Family: FamilyStorage, Canonical: "index", Forms: []string{"インデックス"}},

		// Pointer traversal.
		{Family: FamilyPointer, Canonical: "current", Forms: []string{"現在のノード", "カレントノード", "カレント"}, Left: BoundaryMember, Right: BoundaryMember},
		{Family: FamilyPointer, Canonical: "previous", Forms: []string{"前のノード", "プレビオス"}, Left: BoundaryMember, Right: BoundaryMember},
		{Family: FamilyPointer, Canonical: "next", Forms: []string{"次のノード", "次ノード", "ネクスト"}, Left: BoundaryMember, Right: BoundaryMember},
		{Family: FamilyPointer, Canonical: "head", Forms: []string{"ヘッド"}, Left: BoundaryMember, Right: BoundaryMember},
		{Family: FamilyPointer, Canonical: "tail", Forms: []string{"末尾ノード", "テール", "末尾"}, Left: BoundaryMember, Right: BoundaryMember},

		// Literals and keywords.
		{Family: FamilyLiteral, Canonical: "true", Forms: []string{"TRUE", "True", "真"}},
		{Family: FamilyLiteral, Canonical: "false", Forms: []string{"FALSE", "False", "偽"}},
		{Family: FamilyLiteral, Canonical: "return", Forms: []string{"戻る", "返却"}},
	}
}
