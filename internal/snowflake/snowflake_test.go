package snowflake

import (
	"testing"
	"time"
)

func TestNewGenerator(t *testing.T) {
	if _, err := NewGenerator(0); err != nil {
		t.Error(err)
	}
	if _, err := NewGenerator(maxWorkerValue); err != nil {
		t.Error(err)
	}
	if _, err := NewGenerator(maxWorkerValue + 1); err == nil {
		t.Error("Expected an error for a worker ID above the maximum")
	}
}

func TestGenerateSnowflake(t *testing.T) {
	g, err := NewGenerator(7)
	if err != nil {
		t.Fatal(err)
	}

	first, err := g.Generate()
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.Generate()
	if err != nil {
		t.Fatal(err)
	}

	if second <= first {
		t.Errorf("Expected increasing ids, got %d then %d", first, second)
	}
	if worker := Extract(first).WorkerID; worker != 7 {
		t.Errorf("Expected worker ID 7, got %d", worker)
	}
}

func TestExtract(t *testing.T) {
	g, err := NewGenerator(3)
	if err != nil {
		t.Fatal(err)
	}
	fixed := time.UnixMilli(1_700_000_000_000)
	g.now = func() time.Time { return fixed }

	id, err := g.Generate()
	if err != nil {
		t.Fatal(err)
	}
	id, err = g.Generate()
	if err != nil {
		t.Fatal(err)
	}

	got := Extract(id)
	want := Snowflake{Timestamp: fixed.UnixMilli(), WorkerID: 3, Increment: 1}
	if got != want {
		t.Errorf("Extract(%d) = %+v, want %+v", id, got, want)
	}
}

func TestSnowflakeIncrementOverflow(t *testing.T) {
	g, err := NewGenerator(0)
	if err != nil {
		t.Fatal(err)
	}
	fixed := time.Now()
	g.now = func() time.Time { return fixed }

	for i := int64(0); i < maxIncrementValue+2; i++ {
		_, err := g.Generate()
		if err != nil {
			return
		}
	}
	t.Error("Expected increment overflow, but there wasn't")
}
