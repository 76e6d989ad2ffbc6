package async

import "testing"

func TestProgress_Set(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want float32
	}{
		{"zero", 0, 0},
		{"half", 0.5, 0.5},
		{"one", 1, 1},
		{"above one clamps", 3, 1},
		{"negative is indeterminate", -0.2, Indeterminate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Progress
			p.Set(tt.in)
			if got := p.Value(); got != tt.want {
				t.Errorf("Value: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgress_Steps(t *testing.T) {
	var p Progress
	p.SetNumSteps(4)
	if p.Value() != 0 {
		t.Errorf("after SetNumSteps: got %v, want 0", p.Value())
	}
	p.Step()
	p.Step()
	if p.Value() != 0.5 {
		t.Errorf("after 2 of 4 steps: got %v, want 0.5", p.Value())
	}
	p.Step()
	p.Step()
	p.Step()
	if p.Value() != 1 {
		t.Errorf("after overshooting steps: got %v, want 1", p.Value())
	}

	p.SetNumSteps(0)
	if p.Value() != Indeterminate {
		t.Errorf("zero steps: got %v, want Indeterminate", p.Value())
	}
	p.Step()
	if p.Value() != Indeterminate {
		t.Errorf("Step without steps changed value to %v", p.Value())
	}
}
