package notice

import (
	"net/http"

	"github.com/chariotlab/atelier-api/internal/common"
)

// Section is one titled block of the usage notice.
type Section struct {
	Title string   `json:"title"`
	Body  string   `json:"body,omitempty"`
	Items []string `json:"items,omitempty"`
}

// Document is the static usage notice served to clients.
type Document struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

var document = Document{
	Title: "Notice Exemple",
	Sections: []Section{
		{
			Title: "1. Introduction",
			Body: "Cette notice est un exemple temporaire pour illustrer l'utilisation " +
				"d'un site web en cours de développement. Le contenu sera mis à jour à " +
				"mesure que le projet avance et que les fonctionnalités finales seront définies.",
		},
		{
			Title: "2. Objectifs du site",
			Items: []string{
				"Faciliter la commande des moyens logistiques non motorisés.",
				"Centraliser les informations pour une meilleure gestion.",
				"Offrir une interface intuitive inspirée des boutiques en ligne.",
			},
		},
		{
			Title: "3. Fonctionnalités futures",
			Body: "Les fonctionnalités incluront la consultation des produits, la " +
				"configuration personnalisée, et la gestion des commandes. Des mises à " +
				"jour régulières garantiront l'évolution et l'amélioration de l'expérience utilisateur.",
		},
	},
}

// Get serves the usage notice.
func Get(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": document})
}
