// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

// Package storetest provides generic functional tests for the Store
// interface.  A typical backend test module needs to wrap Suite to
// create its backend:
//
//     package mybackend
//
//     import (
//             "testing"
//             "github.com/aqea/go-extractor/coordinate/storetest"
//             "github.com/benbjohnson/clock"
//             "github.com/stretchr/testify/suite"
//     )
//
//     // Suite is the per-backend generic test suite.
//     type Suite struct {
//             storetest.Suite
//     }
//
//     // SetupSuite does global setup for the test suite.
//     func (s *Suite) SetupSuite() {
//             s.Suite.SetupSuite()
//             s.New = func(clk clock.Clock) (coordinate.Store, error) {
//                     return NewWithClock(clk), nil
//             }
//     }
//
//     // TestStore runs the Store generic tests.
//     func TestStore(t *testing.T) {
//             suite.Run(t, &Suite{})
//     }
package storetest

import (
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"

	"github.com/aqea/go-extractor/coordinate"
)

// Suite is the generic Store backend test suite.
type Suite struct {
	suite.Suite

	// Clock contains the alternate time source to be used in
	// tests.  It is reset to a fresh mock clock before every test.
	Clock *clock.Mock

	// New creates an empty store on the suite's clock.  It is set
	// by importing packages.
	New func(clk clock.Clock) (coordinate.Store, error)

	// Store is the backend under test, created fresh per test.
	Store coordinate.Store
}

// SetupSuite does one-time initialization for the test suite.
func (s *Suite) SetupSuite() {}

// SetupTest creates a fresh store for each test.
func (s *Suite) SetupTest() {
	s.Clock = clock.NewMock()
	store, err := s.New(s.Clock)
	s.Require().NoError(err)
	s.Store = store
}

// TearDownTest closes the store created by SetupTest.
func (s *Suite) TearDownTest() {
	if s.Store != nil {
		s.NoError(s.Store.Close())
		s.Store = nil
	}
}
