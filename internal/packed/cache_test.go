package packed

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func countingCache(loads *int32, fail bool) *Cache {
	c := NewCache()
	c.load = func(path string) (*Image, error) {
		atomic.AddInt32(loads, 1)
		if fail {
			return nil, errors.New("boom")
		}
		return NewImage(image.NewNRGBA(image.Rect(0, 0, 2, 1))), nil
	}
	return c
}

func TestCacheResolve(t *testing.T) {
	var loads int32
	c := countingCache(&loads, false)

	a, err := c.Resolve("dir/../img.png")
	test.That(t, err, test.ShouldBeNil)
	b, err := c.Resolve("img.png")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a, test.ShouldEqual, b)
	test.That(t, atomic.LoadInt32(&loads), test.ShouldEqual, int32(1))
	test.That(t, c.Len(), test.ShouldEqual, 1)

	c.Invalidate("./img.png")
	test.That(t, c.Len(), test.ShouldEqual, 0)
	_, err = c.Resolve("img.png")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, atomic.LoadInt32(&loads), test.ShouldEqual, int32(2))

	c.Release()
	test.That(t, c.Len(), test.ShouldEqual, 0)
}

func TestCacheRemembersFailure(t *testing.T) {
	var loads int32
	c := countingCache(&loads, true)

	for i := 0; i < 3; i++ {
		src, err := c.Resolve("bad.png")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, src, test.ShouldBeNil)
	}
	test.That(t, atomic.LoadInt32(&loads), test.ShouldEqual, int32(1))
}

func TestCacheConcurrent(t *testing.T) {
	var loads int32
	c := countingCache(&loads, false)

	var wg sync.WaitGroup
	results := make([]Source, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Resolve("shared.png")
		}(i)
	}
	wg.Wait()

	// Racing loaders may load twice, but every caller sees the same entry.
	for _, r := range results {
		test.That(t, r, test.ShouldEqual, results[0])
	}
	test.That(t, c.Len(), test.ShouldEqual, 1)
}

func TestProviderFunc(t *testing.T) {
	g := NewGrid(2, 2)
	var p Provider = ProviderFunc(func(string) (Source, error) { return g, nil })
	src, err := p.Resolve("anything")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, src, test.ShouldEqual, g)
}
