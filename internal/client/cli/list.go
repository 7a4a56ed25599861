package cli

import (
	"context"
	"fmt"
)

func (a *App) listUsers(ctx context.Context) {
	a.directory.FetchInitial(ctx)
	a.printListing(0)
}

func (a *App) moreUsers(ctx context.Context) {
	st := a.directory.State()
	if !st.HasMore() {
		fmt.Println("End of directory.")
		return
	}
	before := len(st.Items)
	a.directory.FetchMore(ctx)
	a.printListing(before)
}

func (a *App) refreshUsers(ctx context.Context) {
	a.directory.Refresh(ctx)
	a.printListing(0)
}

// printListing shows items starting at offset, then a footer line.
func (a *App) printListing(offset int) {
	st := a.directory.State()
	if len(st.Items) == 0 {
		fmt.Println("No users found.")
		return
	}
	for i := offset; i < len(st.Items); i++ {
		rec := st.Items[i]
		fmt.Printf("%3d. %-24s %-32s joined %s\n",
			i+1, rec.DisplayName, rec.Email, rec.CreatedAt.Format("2006-01-02"))
	}
	if st.HasMore() {
		fmt.Println("(type 'more' for the next page)")
	} else {
		fmt.Println("(end of directory)")
	}
}
