// Package main provides studyctl, the StudyTrack operator CLI.
package main

import "github.com/studytrackapp/studytrack-server/cmd/studyctl/commands"

func main() {
	commands.Execute()
}
