package repository

import "testing"

func TestBuildKeywordConditionByDialect(t *testing.T) {
	condition, argCount := buildKeywordConditionByDialect("sqlite", "title", " ", "contract_no")
	if argCount != 2 {
		t.Fatalf("arg count want 2 got %d", argCount)
	}
	if condition != "(title LIKE ? OR contract_no LIKE ?)" {
		t.Fatalf("sqlite condition mismatch, got %s", condition)
	}

	condition, _ = buildKeywordConditionByDialect("postgres", "name")
	if condition != "(name ILIKE ?)" {
		t.Fatalf("postgres condition mismatch, got %s", condition)
	}

	condition, argCount = buildKeywordConditionByDialect("sqlite")
	if condition != "" || argCount != 0 {
		t.Fatalf("empty columns should produce no condition, got %q/%d", condition, argCount)
	}
}

func TestBuildKeywordConditionDefaultsToSQLite(t *testing.T) {
	condition, _ := buildKeywordCondition(nil, "name")
	if condition != "(name LIKE ?)" {
		t.Fatalf("nil db should fall back to sqlite, got %s", condition)
	}
}

func TestRepeatLikeArgs(t *testing.T) {
	args := repeatLikeArgs("%test%", 3)
	if len(args) != 3 {
		t.Fatalf("args len want 3 got %d", len(args))
	}
	for idx, arg := range args {
		if arg != "%test%" {
			t.Fatalf("args[%d] want %%test%% got %v", idx, arg)
		}
	}
}
