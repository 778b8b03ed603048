package view

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
)

const (
	DefaultResource  = "blockinfo"
	DefaultLoginPage = "login.html"
	ContainerSuffix  = "Table"
)

// ContainerID names the element a resource renders into.
func ContainerID(resource string) string {
	return resource + ContainerSuffix
}

// Option configures NewTableView.
type Option func(*TableView)

// WithLogger sets where failed loads are reported.
func WithLogger(logger *zap.Logger) Option {
	return func(v *TableView) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithDefaultResource sets the resource Init prefetches.
func WithDefaultResource(resource string) Option {
	return func(v *TableView) {
		v.defaultResource = resource
	}
}

// WithLoginPage sets where a 401 sends the page.
func WithLoginPage(location string) Option {
	return func(v *TableView) {
		v.loginPage = location
	}
}

// WithTabs registers the content panels that exist on the page.
func WithTabs(tabs ...string) Option {
	return func(v *TableView) {
		for _, tab := range tabs {
			v.panels[tab] = struct{}{}
		}
	}
}

// TableView loads resources into a page and tracks which tab is active.
// Loads are never coordinated: two loads of one resource race and the one
// that finishes last owns the container.
type TableView struct {
	client          *Client
	page            Page
	logger          *zap.Logger
	defaultResource string
	loginPage       string

	mu     sync.RWMutex
	active string
	panels map[string]struct{}

	wg sync.WaitGroup
}

// NewTableView binds a client to a page. No tab is active until ActivateTab.
func NewTableView(client *Client, page Page, opts ...Option) *TableView {
	v := &TableView{
		client:          client,
		page:            page,
		logger:          zap.NewNop(),
		defaultResource: DefaultResource,
		loginPage:       DefaultLoginPage,
		panels:          make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ActiveTab is the tab last passed to ActivateTab, empty before that.
func (v *TableView) ActiveTab() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.active
}

// PanelActive reports whether the panel for tab is registered and shown.
func (v *TableView) PanelActive(tab string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.panels[tab]
	return ok && v.active == tab
}

// Tabs lists the registered panels sorted by name.
func (v *TableView) Tabs() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	tabs := make([]string, 0, len(v.panels))
	for tab := range v.panels {
		tabs = append(tabs, tab)
	}
	sort.Strings(tabs)
	return tabs
}

// ActivateTab makes tab the only active one and loads its resource in the
// background. A failed load is logged; the tab stays active.
func (v *TableView) ActivateTab(ctx context.Context, tab string) {
	v.mu.Lock()
	v.active = tab
	v.mu.Unlock()

	v.goLoad(ctx, tab, func(err error) {
		v.logger.Error("load table failed", zap.String("resource", tab), zap.Error(err))
	})
}

// Init prefetches the default resource once when its container exists. Every
// error is dropped.
func (v *TableView) Init(ctx context.Context) {
	if v.defaultResource == "" {
		return
	}
	if _, ok := v.page.Lookup(ContainerID(v.defaultResource)); !ok {
		return
	}

	v.goLoad(ctx, v.defaultResource, func(err error) {
		v.logger.Debug("initial load skipped", zap.String("resource", v.defaultResource), zap.Error(err))
	})
}

func (v *TableView) goLoad(ctx context.Context, resource string, onErr func(error)) {
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		if err := v.LoadAndRender(ctx, resource); err != nil {
			onErr(err)
		}
	}()
}

// Wait blocks until every background load started so far has finished.
func (v *TableView) Wait() {
	v.wg.Wait()
}

// LoadAndRender fetches resource and replaces its container's content. The
// container is written only after a successful fetch and parse, so a failed
// load leaves the previous table in place. A 401 navigates to the login page
// and returns nil; a missing container is a silent no-op.
func (v *TableView) LoadAndRender(ctx context.Context, resource string) error {
	body, err := v.client.Fetch(ctx, resource)
	if errors.Is(err, ErrAuthRequired) {
		v.logger.Info("not logged in, redirecting", zap.String("resource", resource), zap.String("location", v.loginPage))
		v.page.Navigate(v.loginPage)
		return nil
	}
	if err != nil {
		return err
	}

	data, err := ParsePayload(resource, body)
	if err != nil {
		return err
	}

	target, ok := v.page.Lookup(ContainerID(resource))
	if !ok {
		return nil
	}

	markup, err := RenderTable(data)
	if err != nil {
		return err
	}
	target.SetInnerHTML(markup)

	v.logger.Debug("table rendered", zap.String("resource", resource), zap.Int("rows", len(data)))
	return nil
}
