package view

import (
	"sort"
	"sync"

	cmap "github.com/orcaman/concurrent-map"
)

// Target receives rendered table markup.
type Target interface {
	SetInnerHTML(markup string)
}

// Page is the host a TableView renders into: it finds containers by id and
// can be sent to another page.
type Page interface {
	Lookup(id string) (Target, bool)
	Navigate(location string)
}

// Container holds the markup of one table element.
type Container struct {
	id     string
	mu     sync.RWMutex
	markup string
	writes int
}

func (c *Container) ID() string {
	return c.id
}

// SetInnerHTML replaces the whole content in one step.
func (c *Container) SetInnerHTML(markup string) {
	c.mu.Lock()
	c.markup = markup
	c.writes++
	c.mu.Unlock()
}

func (c *Container) InnerHTML() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.markup
}

// Writes counts SetInnerHTML calls.
func (c *Container) Writes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writes
}

// Document is an in-memory page: a set of table containers plus the location
// it was last navigated to.
type Document struct {
	containers cmap.ConcurrentMap // id---*Container

	mu       sync.Mutex
	location string
}

// NewDocument returns a page with no containers.
func NewDocument() *Document {
	return &Document{containers: cmap.New()}
}

// AddContainer returns the existing container when id is already present.
func (d *Document) AddContainer(id string) *Container {
	c := &Container{id: id}
	if d.containers.SetIfAbsent(id, c) {
		return c
	}
	v, _ := d.containers.Get(id)
	return v.(*Container)
}

// RemoveContainer drops id; later loads for it become no-ops.
func (d *Document) RemoveContainer(id string) {
	d.containers.Remove(id)
}

func (d *Document) Container(id string) (*Container, bool) {
	v, ok := d.containers.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Container), true
}

func (d *Document) ContainerIDs() []string {
	ids := d.containers.Keys()
	sort.Strings(ids)
	return ids
}

// Lookup finds the render target with id.
func (d *Document) Lookup(id string) (Target, bool) {
	c, ok := d.Container(id)
	if !ok {
		return nil, false
	}
	return c, true
}

// Navigate records a page change.
func (d *Document) Navigate(location string) {
	d.mu.Lock()
	d.location = location
	d.mu.Unlock()
}

// Location is empty until the page has been navigated somewhere.
func (d *Document) Location() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location
}
