package playlist

import (
	"errors"
	"reflect"
	"testing"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/effect"
)

func TestNewDropsRepeats(t *testing.T) {
	p := New(effect.Fire, effect.Off, effect.Fire, effect.ID(250))
	if got := p.Names(); !reflect.DeepEqual(got, []string{"fire", "off"}) {
		t.Fatalf("Names() = %v", got)
	}
}

func TestFromNamesRejectsUnknown(t *testing.T) {
	if _, err := FromNames([]string{"fire", "lasers"}); !errors.Is(err, effect.ErrUnknown) {
		t.Fatalf("err = %v, want ErrUnknown", err)
	}
}

func TestNextWraps(t *testing.T) {
	p := New(effect.Fire, effect.Ripple, effect.Blurz)
	steps := []effect.ID{effect.Ripple, effect.Blurz, effect.Fire, effect.Ripple}
	cur := effect.Fire
	for i, want := range steps {
		cur = p.Next(cur)
		if cur != want {
			t.Fatalf("step %d: Next = %s, want %s", i, cur, want)
		}
	}
	if got := p.Prev(effect.Fire); got != effect.Blurz {
		t.Fatalf("Prev(fire) = %s, want blurz", got)
	}
	if got := p.Next(effect.Off); got != effect.Fire {
		t.Fatalf("Next of an unlisted effect = %s, want first", got)
	}
	if got := New().Next(effect.Off); got != effect.Off {
		t.Fatalf("empty Next = %s, want unchanged", got)
	}
}

func TestIntersectKeepsOrder(t *testing.T) {
	p := New(effect.Blurz, effect.Off, effect.Fire)
	allowed := New(effect.Fire, effect.Blurz)
	if got := p.Intersect(allowed).IDs(); !reflect.DeepEqual(got, []effect.ID{effect.Blurz, effect.Fire}) {
		t.Fatalf("Intersect = %v", got)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	p := New(effect.Off)
	p2, added := p.Add(effect.Fire)
	if !added || p2.Len() != 2 || p.Len() != 1 {
		t.Fatalf("Add should return a longer copy, got %v (orig %v)", p2.Names(), p.Names())
	}
	if _, added := p2.Add(effect.Fire); added {
		t.Fatal("second Add should be a no-op")
	}
}

func TestRemoveNeverEmpties(t *testing.T) {
	p := New(effect.Off, effect.Rainbow)
	p, err := p.Remove(effect.Off)
	if err != nil {
		t.Fatalf("Remove(off): %v", err)
	}
	if _, err := p.Remove(effect.Rainbow); !errors.Is(err, ErrLastEntry) {
		t.Fatalf("err = %v, want ErrLastEntry", err)
	}
	if _, err := p.Remove(effect.Fire); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
}

func TestHasAudio(t *testing.T) {
	if New(effect.Off, effect.Rainbow).HasAudio() {
		t.Fatal("static playlist should not need audio")
	}
	if !New(effect.Off, effect.Fire).HasAudio() {
		t.Fatal("fire needs audio")
	}
}
