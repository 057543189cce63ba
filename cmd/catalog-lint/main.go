// catalog-lint validates an achievement catalog JSON file before deployment.
package main

import (
	"fmt"
	"os"

	"unimap/models"
	"unimap/services"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("usage: catalog-lint <catalog.json>")
		os.Exit(2)
	}
	path := os.Args[1]

	defs, err := services.LoadCatalogFile(path)
	if err != nil {
		fmt.Printf("%s: %v\n", path, err)
		os.Exit(1)
	}

	catalog, err := services.NewCatalog(defs)
	if err != nil {
		fmt.Printf("%s: %v\n", path, err)
		os.Exit(1)
	}

	coop := 0
	perCategory := map[models.Category]int{}
	for _, def := range catalog.All() {
		perCategory[def.Category]++
		if def.Kind == models.KindCoop {
			coop++
		}
	}

	fmt.Printf("%s: OK (%d achievements, root %q, %d co-op)\n", path, catalog.Len(), catalog.RootID(), coop)
	for _, c := range models.Categories {
		fmt.Printf("  %-12s %d\n", c, perCategory[c])
	}
}
