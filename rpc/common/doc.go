// Package common provides the data structures shared by the server, the client
// and the cli of the record service.
//
// Key Components:
//
//   - Request / Response: the two message shapes of the line protocol. A request
//     names an Action and carries an optional Payload whose values are kept raw
//     until the dispatcher parses them. A response has a Status and either a
//     Message and/or Data (OK) or an ErrorCode and a Message (ERROR).
//
//   - ServerConfig / ClientConfig: explicit configuration values built once at
//     startup, decoded with mapstructure and checked with validator struct tags.
//
//   - Logger: custom logging implementation that plugs into the dragonboat
//     logger registry and prints "LEVEL | name | message" lines.
package common
