package qualify

import (
	"fmt"
	"strconv"
	"strings"
)

// phrasebook holds every user-facing sentence for one language. Format verbs
// use explicit indexes so translations may reorder arguments.
type phrasebook struct {
	welcome          string
	askProjectType   string
	askCity          string // label
	cityClarify      string
	askScopeArea     string // city, label
	askScopeUnits    string // city, units
	askTimeline      string // label
	askBudget        string // label
	askContact       string
	askContactNamed  string // name
	askCallback      string
	callbackReask    string
	closing          string // ", name" or "", label, city
	closingNoContact string
	outOfCoverage    string // city
	budgetTooLow     string // label, minimum
	labels           map[Category]string
	genericLabel     string
	units            map[Category]string
}

var phrasebooks = map[Language]*phrasebook{
	LanguageSpanish: {
		welcome:          "¡Hola! Soy el asistente de reformas. Te haré unas preguntas rápidas para preparar tu presupuesto. ¿Qué tipo de reforma necesitas? Por ejemplo: baño, cocina, reforma integral...",
		askProjectType:   "¿Podrías decirme qué tipo de reforma necesitas? Por ejemplo: baño, cocina, reforma integral...",
		askCity:          "¡Perfecto! Una %[1]s es un proyecto muy interesante. ¿En qué ciudad está ubicado el inmueble?",
		cityClarify:      "Entiendo que prefieras no dar muchos detalles. Solo necesitamos la ciudad para saber si trabajamos en tu zona, no la dirección exacta. ¿En qué ciudad está el inmueble?",
		askScopeArea:     "¡Genial! %[1]s está dentro de nuestra zona de cobertura. ¿Cuántos metros cuadrados tiene aproximadamente el espacio de la %[2]s?",
		askScopeUnits:    "¡Genial! %[1]s está dentro de nuestra zona de cobertura. ¿Cuántas %[2]s quieres cambiar?",
		askTimeline:      "Muy bien. ¿Cuándo te gustaría empezar con la %[1]s?",
		askBudget:        "Perfecto. ¿Tienes un presupuesto aproximado en mente para esta %[1]s?",
		askContact:       "Para finalizar, ¿podrías darme tu nombre y un teléfono o email de contacto para que un técnico pueda llamarte?",
		askContactNamed:  "Gracias, %[1]s. ¿Me dejas un teléfono o email de contacto?",
		askCallback:      "¿Te parece bien que un técnico te llame para concertar una visita sin compromiso?",
		callbackReask:    "Lo entiendo. La llamada solo sirve para ajustar el presupuesto a tu proyecto y no te compromete a nada. ¿Quieres que te llamemos?",
		closing:          "¡Muchas gracias%[1]s! Hemos registrado toda la información de tu proyecto de %[2]s en %[3]s. Un técnico te contactará en las próximas 24-48 horas para concertar una visita sin compromiso.",
		closingNoContact: "Entendido, no te contactaremos. Gracias por tu tiempo y por tu interés.",
		outOfCoverage:    "Lo sentimos, actualmente no trabajamos en %[1]s. Gracias por tu interés y mucha suerte con tu proyecto.",
		budgetTooLow:     "Entiendo. Para una %[1]s de calidad, el presupuesto mínimo suele ser de %[2]s. Ahora mismo no podemos ayudarte con este proyecto, pero gracias por tu interés.",
		labels: map[Category]string{
			CategoryBathroom:       "reforma de baño",
			CategoryKitchen:        "reforma de cocina",
			CategoryFullRenovation: "reforma integral",
			CategoryPainting:       "pintura",
			CategoryFlooring:       "reforma de suelos",
			CategoryWindows:        "cambio de ventanas",
			CategoryDoors:          "cambio de puertas",
			CategoryOther:          "reforma",
		},
		genericLabel: "reforma",
		units: map[Category]string{
			CategoryWindows: "ventanas",
			CategoryDoors:   "puertas",
		},
	},
	LanguageEnglish: {
		welcome:          "Hi! I'm the renovation assistant. I'll ask a few quick questions to prepare your quote. What kind of renovation do you need? For example: bathroom, kitchen, full renovation...",
		askProjectType:   "Could you tell me what kind of renovation you need? For example: bathroom, kitchen, full renovation...",
		askCity:          "Great! A %[1]s is a very interesting project. Which city is the property in?",
		cityClarify:      "I understand you may prefer not to share details. We only need the city to check that we work in your area, not the exact address. Which city is the property in?",
		askScopeArea:     "Great! %[1]s is within our service area. Roughly how many square meters is the space for the %[2]s?",
		askScopeUnits:    "Great! %[1]s is within our service area. How many %[2]s would you like to replace?",
		askTimeline:      "Very good. When would you like to start the %[1]s?",
		askBudget:        "Perfect. Do you have an approximate budget in mind for this %[1]s?",
		askContact:       "To finish, could you give me your name and a phone number or email so a technician can call you?",
		askContactNamed:  "Thanks, %[1]s. Could you leave a phone number or email?",
		askCallback:      "Is it OK if a technician calls you to arrange a free, no-obligation visit?",
		callbackReask:    "I understand. The call is only to fit the quote to your project and commits you to nothing. Would you like us to call you?",
		closing:          "Thank you very much%[1]s! We have recorded all the details of your %[2]s project in %[3]s. A technician will contact you within the next 24-48 hours to arrange a no-obligation visit.",
		closingNoContact: "Understood, we will not contact you. Thank you for your time and interest.",
		outOfCoverage:    "Sorry, we don't currently work in %[1]s. Thank you for your interest and good luck with your project.",
		budgetTooLow:     "I understand. For a quality %[1]s the minimum budget is usually %[2]s. We can't help with this project right now, but thank you for your interest.",
		labels: map[Category]string{
			CategoryBathroom:       "bathroom renovation",
			CategoryKitchen:        "kitchen renovation",
			CategoryFullRenovation: "full renovation",
			CategoryPainting:       "painting job",
			CategoryFlooring:       "flooring renovation",
			CategoryWindows:        "window replacement",
			CategoryDoors:          "door replacement",
			CategoryOther:          "renovation",
		},
		genericLabel: "renovation",
		units: map[Category]string{
			CategoryWindows: "windows",
			CategoryDoors:   "doors",
		},
	},
	LanguageCatalan: {
		welcome:          "Hola! Sóc l'assistent de reformes. Et faré unes preguntes ràpides per preparar el teu pressupost. Quin tipus de reforma necessites? Per exemple: bany, cuina, reforma integral...",
		askProjectType:   "Em podries dir quin tipus de reforma necessites? Per exemple: bany, cuina, reforma integral...",
		askCity:          "Perfecte! Una %[1]s és un projecte molt interessant. A quina ciutat és l'immoble?",
		cityClarify:      "Entenc que prefereixis no donar gaires detalls. Només necessitem la ciutat per saber si treballem a la teva zona, no l'adreça exacta. A quina ciutat és l'immoble?",
		askScopeArea:     "Genial! %[1]s és dins la nostra zona de cobertura. Quants metres quadrats té aproximadament l'espai de la %[2]s?",
		askScopeUnits:    "Genial! %[1]s és dins la nostra zona de cobertura. Quantes %[2]s vols canviar?",
		askTimeline:      "Molt bé. Quan t'agradaria començar la %[1]s?",
		askBudget:        "Perfecte. Tens un pressupost aproximat en ment per a aquesta %[1]s?",
		askContact:       "Per acabar, em podries donar el teu nom i un telèfon o correu de contacte perquè un tècnic et pugui trucar?",
		askContactNamed:  "Gràcies, %[1]s. Em deixes un telèfon o correu de contacte?",
		askCallback:      "Et sembla bé que un tècnic et truqui per concertar una visita sense compromís?",
		callbackReask:    "Ho entenc. La trucada només serveix per ajustar el pressupost al teu projecte i no et compromet a res. Vols que et truquem?",
		closing:          "Moltes gràcies%[1]s! Hem registrat tota la informació del teu projecte de %[2]s a %[3]s. Un tècnic es posarà en contacte amb tu en les properes 24-48 hores per concertar una visita sense compromís.",
		closingNoContact: "Entesos, no et contactarem. Gràcies pel teu temps i pel teu interès.",
		outOfCoverage:    "Ho sentim, actualment no treballem a %[1]s. Gràcies pel teu interès i molta sort amb el teu projecte.",
		budgetTooLow:     "Ho entenc. Per a una %[1]s de qualitat, el pressupost mínim sol ser de %[2]s. Ara mateix no et podem ajudar amb aquest projecte, però gràcies pel teu interès.",
		labels: map[Category]string{
			CategoryBathroom:       "reforma de bany",
			CategoryKitchen:        "reforma de cuina",
			CategoryFullRenovation: "reforma integral",
			CategoryPainting:       "pintura",
			CategoryFlooring:       "reforma de terres",
			CategoryWindows:        "substitució de finestres",
			CategoryDoors:          "substitució de portes",
			CategoryOther:          "reforma",
		},
		genericLabel: "reforma",
		units: map[Category]string{
			CategoryWindows: "finestres",
			CategoryDoors:   "portes",
		},
	},
}

func phrasebookFor(lang Language) *phrasebook {
	if p, ok := phrasebooks[lang]; ok {
		return p
	}
	return phrasebooks[DefaultLanguage]
}

// label names the project for templates, generic when unknown or refused.
func (p *phrasebook) label(s *State) string {
	if cat, ok := s.ProjectType.Get(); ok {
		if l, ok := p.labels[cat]; ok {
			return l
		}
	}
	return p.genericLabel
}

// CategoryLabel returns the display name of cat in lang.
func CategoryLabel(cat Category, lang Language) string {
	p := phrasebookFor(lang)
	if l, ok := p.labels[cat]; ok {
		return l
	}
	return p.genericLabel
}

// Greeting is the opening message of a new conversation.
func Greeting(lang Language) string {
	return phrasebookFor(lang).welcome
}

// FormatEuros renders an amount the way lang writes currency.
func FormatEuros(amount int, lang Language) string {
	sep := "."
	if lang == LanguageEnglish {
		sep = ","
	}
	digits := strconv.Itoa(amount)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteString(sep)
		}
		b.WriteRune(r)
	}
	if lang == LanguageEnglish {
		return "€" + b.String()
	}
	return fmt.Sprintf("%s €", b.String())
}
