package view

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentContainers(t *testing.T) {
	doc := NewDocument()
	a := doc.AddContainer("blockinfoTable")
	again := doc.AddContainer("blockinfoTable")
	doc.AddContainer("roominfoTable")

	assert.Same(t, a, again)
	assert.Equal(t, []string{"blockinfoTable", "roominfoTable"}, doc.ContainerIDs())

	target, ok := doc.Lookup("blockinfoTable")
	require.True(t, ok)
	target.SetInnerHTML("x")
	assert.Equal(t, "x", a.InnerHTML())

	doc.RemoveContainer("blockinfoTable")
	_, ok = doc.Lookup("blockinfoTable")
	assert.False(t, ok)
}

func TestDocumentNavigate(t *testing.T) {
	doc := NewDocument()
	assert.Empty(t, doc.Location())

	doc.Navigate("login.html")
	assert.Equal(t, "login.html", doc.Location())
}

func TestContainerWritesAreWhole(t *testing.T) {
	c := NewDocument().AddContainer("t")
	values := []string{"<tbody>aaaa</tbody>", "<tbody>bbbb</tbody>"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(v string) { defer wg.Done(); c.SetInnerHTML(v) }(values[i%2])
		go func() {
			defer wg.Done()
			got := c.InnerHTML()
			assert.True(t, got == "" || got == values[0] || got == values[1], got)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Writes())
}

func TestContainerID(t *testing.T) {
	assert.Equal(t, "blockinfoTable", ContainerID("blockinfo"))
}
