//
// Copyright (c) 2021 Red Hat, Inc.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build !release

package assembler

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
)

var (
	errNotSupported = errors.New("not supported by the test driver")

	testDrivers     = map[string]*TestDriver{}
	testDriversLock sync.Mutex
)

// TestDriver is a database/sql driver that doesn't connect anywhere. It records the data source names it was
// asked to open and fails the pings with PingErr, if set.
type TestDriver struct {
	lock    sync.Mutex
	pingErr error
	onPing  func()
	dsns    []string
	pings   int
	closes  int
}

var (
	_ driver.Driver = (*TestDriver)(nil)
	_ driver.Pinger = (*testConn)(nil)
)

// RegisterTestDriver registers the test driver under the provided name, or returns the already registered one.
func RegisterTestDriver(name string) *TestDriver {
	testDriversLock.Lock()
	defer testDriversLock.Unlock()

	if d, ok := testDrivers[name]; ok {
		return d
	}
	d := &TestDriver{}
	sql.Register(name, d)
	testDrivers[name] = d
	return d
}

func (d *TestDriver) Open(name string) (driver.Conn, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.dsns = append(d.dsns, name)
	return &testConn{driver: d}, nil
}

// SetPingErr makes all the subsequent pings fail with the error. Nil makes them succeed again.
func (d *TestDriver) SetPingErr(err error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.pingErr = err
}

// OnPing registers a function called before every ping. Nil removes it.
func (d *TestDriver) OnPing(f func()) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.onPing = f
}

// DSNs returns the data source names of all the opened connections.
func (d *TestDriver) DSNs() []string {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]string{}, d.dsns...)
}

// Pings returns the number of the pings made so far.
func (d *TestDriver) Pings() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.pings
}

// Closes returns the number of the closed connections.
func (d *TestDriver) Closes() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.closes
}

// Reset forgets the recorded connections and pings and makes the pings succeed.
func (d *TestDriver) Reset() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.pingErr = nil
	d.onPing = nil
	d.dsns = nil
	d.pings = 0
	d.closes = 0
}

type testConn struct {
	driver *TestDriver
}

func (c *testConn) Ping(_ context.Context) error {
	c.driver.lock.Lock()
	onPing := c.driver.onPing
	c.driver.lock.Unlock()
	if onPing != nil {
		onPing()
	}

	c.driver.lock.Lock()
	defer c.driver.lock.Unlock()
	c.driver.pings++
	return c.driver.pingErr
}

func (c *testConn) Prepare(string) (driver.Stmt, error) {
	return nil, errNotSupported
}

func (c *testConn) Close() error {
	c.driver.lock.Lock()
	defer c.driver.lock.Unlock()
	c.driver.closes++
	return nil
}

func (c *testConn) Begin() (driver.Tx, error) {
	return nil, errNotSupported
}
