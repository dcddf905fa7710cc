package chef

import (
	"fmt"
	"strings"
)

const systemInstruction = `You are the head chef of a digital community for authentic African and Caribbean cuisine.
Be knowledgeable, warm and professional. Focus on flavor, technique and regional accuracy.
When explaining ingredients, include sourcing tips for cooks living abroad.`

const recipeShape = `Respond with a single JSON object and nothing else, with these fields:
dishName (string), origin (string), description (string), ingredients (array of strings with quantities),
instructions (array of strings), specialIngredients (array of {name, explanation, substitute}),
flavorProfile ({spicy, sweet, savory, sour, bitter}, integers 0-10), cookingTime (string such as "45 mins"),
difficulty ("Easy", "Medium" or "Hard"), relatedDishes (array of {dishName, origin, connection}).`

func buildRecipeRequest(in Input) generateRequest {
	req := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
		SafetySettings:    safetySettings,
	}

	var parts []part
	switch {
	case in.Kind == KindImage:
		mime := in.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts,
			part{InlineData: &inlineData{MIMEType: mime, Data: in.Value}},
			part{Text: "Identify the dish in this photo and its regional origin, then write an authentic recipe for it. " +
				"If the photo is not clearly food, say so in the description and give a classic Jollof Rice recipe instead.\n" + recipeShape},
		)
	case in.Kind == KindRandom:
		parts = append(parts, part{Text: "Pick a popular, culturally significant African or Caribbean dish yourself " +
			"and write an authentic recipe for it. Do not ask for input.\n" + recipeShape})
	case in.IsLink():
		req.Tools = []tool{{GoogleSearch: &struct{}{}}}
		parts = append(parts, part{Text: fmt.Sprintf("Find the dish featured at %q using search, including the post id on its platform. "+
			"If the link is private, broken, or names no dish, do not guess: return the object with dishName set to %q.\n%s",
			strings.TrimSpace(in.Value), linkAccessSentinel, recipeShape)})
	default:
		req.Tools = []tool{{GoogleSearch: &struct{}{}}}
		parts = append(parts, part{Text: fmt.Sprintf("The user asks: %q. Answer with an authentic African or Caribbean recipe.\n%s",
			strings.TrimSpace(in.Value), recipeShape)})
	}

	req.Contents = []content{{Role: "user", Parts: parts}}
	return req
}

func videoPrompt(dishName, origin string) string {
	if strings.TrimSpace(origin) == "" {
		return fmt.Sprintf("A cinematic, appetizing video of authentic %s. Steam rising, warm lighting, slow motion.", dishName)
	}
	return fmt.Sprintf("A cinematic, appetizing video of authentic %s from %s. Steam rising, warm lighting, slow motion.", dishName, origin)
}
