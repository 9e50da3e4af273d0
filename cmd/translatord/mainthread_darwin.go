package main

import "golang.design/x/hotkey/mainthread"

func runOnMainThread(fn func()) {
	mainthread.Init(fn)
}
