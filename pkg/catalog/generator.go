// Package catalog builds the static product and store rows consumed by the simulation
package catalog

import (
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
)

var (
	categories = []string{"Shoes", "Jackets", "T-Shirts", "Shorts", "Pants"}
	brands     = []string{"Nike", "Adidas", "Puma", "Under Armour", "Asics"}
	genders    = []string{"Men", "Women", "Unisex"}
	colors     = []string{"Black", "White", "Blue", "Red", "Green"}
	sizes      = []string{"S", "M", "L", "XL", "38", "40", "42", "44"}
	storeTypes = []string{"Flagship", "Outlet", "Regular"}
	regions    = []string{
		"Île-de-France",
		"Auvergne-Rhône-Alpes",
		"Provence-Alpes-Côte d’Azur",
		"Nouvelle-Aquitaine",
		"Occitanie",
		"Hauts-de-France",
		"Grand Est",
		"Bretagne",
		"Normandie",
		"Pays de la Loire",
	}
	cities = []string{
		"Paris", "Marseille", "Lyon", "Toulouse", "Nice", "Nantes", "Montpellier", "Strasbourg",
		"Bordeaux", "Lille", "Rennes", "Reims", "Toulon", "Saint-Étienne", "Le Havre", "Grenoble",
		"Dijon", "Angers", "Nîmes", "Villeurbanne", "Clermont-Ferrand", "Le Mans", "Aix-en-Provence",
		"Brest", "Tours", "Amiens", "Limoges", "Annecy", "Perpignan", "Metz", "Besançon", "Orléans",
		"Rouen", "Mulhouse", "Caen", "Nancy", "Argenteuil", "Montreuil", "Roubaix", "Avignon",
	}
)

const (
	minPrice = 50.0
	maxPrice = 250.0

	// catalogStream separates catalog draws from the simulation substreams
	catalogStream = 0x636174616c6f67
)

// Generator produces reproducible product and store rows
// 商品・店舗データの生成器（シード固定で再現可能）
type Generator struct {
	rand *rand.Rand
}

// NewGenerator creates a new generator seeded with seed
// 新しい生成器を作成
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rand: rand.New(rand.NewPCG(uint64(seed), catalogStream)),
	}
}

func (g *Generator) pick(values []string) string {
	return values[g.rand.IntN(len(values))]
}

// Products generates n products with identifiers SKU001, SKU002, ...
// n件の商品を生成
func (g *Generator) Products(n int) []simulation.Product {
	products := make([]simulation.Product, 0, max(n, 0))
	for i := 0; i < n; i++ {
		price := minPrice + g.rand.Float64()*(maxPrice-minPrice)
		products = append(products, simulation.Product{
			ID:       fmt.Sprintf("SKU%03d", i+1),
			Category: g.pick(categories),
			Brand:    g.pick(brands),
			Gender:   g.pick(genders),
			Color:    g.pick(colors),
			Size:     g.pick(sizes),
			Price:    decimal.NewFromFloat(price).Round(2),
			Season:   simulation.Seasons[g.rand.IntN(len(simulation.Seasons))],
		})
	}
	return products
}

// Stores generates n stores with identifiers FR001, FR002, ...
// n件の店舗を生成
func (g *Generator) Stores(n int) []simulation.Store {
	stores := make([]simulation.Store, 0, max(n, 0))
	for i := 0; i < n; i++ {
		stores = append(stores, simulation.Store{
			ID:        fmt.Sprintf("FR%03d", i+1),
			City:      g.pick(cities),
			Region:    g.pick(regions),
			StoreType: g.pick(storeTypes),
		})
	}
	return stores
}
