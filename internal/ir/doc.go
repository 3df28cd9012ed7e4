// Package ir provides the intermediate representation types for cards2flow.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the IR the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - CardDoc identity fields (card_id, flow_name) are filled exactly once by
//     the resolver and are immutable afterward
//   - RouteTarget is an explicit tagged value, never an ad hoc presence check
//   - All JSON tags use snake_case
package ir
