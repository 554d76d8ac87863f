package client

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestRegisterAttachesCommandGroups(t *testing.T) {
	root := &cobra.Command{Use: "drosera"}
	Register(root, func() string { return "http://127.0.0.1:8080" })

	want := map[string]bool{"guard": false, "status": false, "snapshots": false, "journal": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("command %q not registered", name)
		}
	}
}
