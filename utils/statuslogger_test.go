package utils

import (
	"fmt"
	"testing"
)

func TestStatusRing(t *testing.T) {
	StatusReset()
	for i := 0; i < 40; i++ {
		StatusInfof("msg %d", i)
	}
	StatusWarnf("last")

	msgs := StatusMessages()
	if len(msgs) != 32 {
		t.Fatalf("len(msgs)=%d; expected 32", len(msgs))
	}
	if msgs[0].Text != fmt.Sprintf("msg %d", 9) {
		t.Errorf("oldest message %q", msgs[0].Text)
	}
	if msgs[31].Text != "last" || msgs[31].Type != ERROR {
		t.Errorf("newest message %+v", msgs[31])
	}
}
