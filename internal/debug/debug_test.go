package debug

import "testing"

func TestAssert(t *testing.T) {
	t.Run("true condition never panics", func(t *testing.T) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Assert(true) panicked: %v", r)
			}
		}()
		Assert(true, "unreachable %d", 1)
	})

	t.Run("false condition panics only when enabled", func(t *testing.T) {
		defer func() {
			r := recover()
			if Enabled && r == nil {
				t.Error("Assert(false) should panic with ballastdebug")
			}
			if !Enabled && r != nil {
				t.Errorf("Assert(false) should be a no-op without ballastdebug, got %v", r)
			}
		}()
		Assert(false, "slot %d out of range", 7)
	})
}

func TestEnabledSkipsGuardedChecks(t *testing.T) {
	evaluated := 0
	check := func() bool {
		evaluated++
		return true
	}

	if Enabled {
		Assert(check(), "check failed")
	}

	want := 0
	if Enabled {
		want = 1
	}
	if evaluated != want {
		t.Errorf("guarded check evaluated %d times, want %d", evaluated, want)
	}
}
