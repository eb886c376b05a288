// Команда seed наполняет базу демо-данными: парк станков с историей
// журналов за последние дни, справочник тканей и несколько соответствий
// рабочих центров. Интерфейс сразу показывает осмысленный дашборд.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"prodboard/database"
	"prodboard/normalization"
)

var fabricNames = []string{
	"Gabardina Premium",
	"Jersey Algodón",
	"Popelina Clásica",
	"Denim 14oz",
	"Tela Polar",
	"Lona Industrial",
}

var machineBrands = []string{"Picanol", "Toyota", "Dornier", "Sulzer"}

func main() {
	dbPath := flag.String("db", "./plant.db", "path to plant database")
	machineCount := flag.Int("machines", 12, "number of machines to create")
	historyDays := flag.Int("days", 7, "days of log history per machine")
	seed := flag.Int64("seed", 0, "random seed (0 = random)")
	flag.Parse()

	if *seed != 0 {
		gofakeit.Seed(*seed)
	}

	db, err := database.NewPlantDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	for _, name := range fabricNames {
		if err := db.CreateFabric(name, normalization.ShortFabricName(name)); err != nil {
			log.Fatalf("Failed to create fabric %q: %v", name, err)
		}
	}
	log.Printf("Created %d fabrics", len(fabricNames))

	today := time.Now()

	for i := 1; i <= *machineCount; i++ {
		id := fmt.Sprintf("%d", i)
		name := fmt.Sprintf("Telar %02d", i)
		brand := machineBrands[i%len(machineBrands)]

		// У части станков есть исторические псевдонимы рабочих центров
		var aliases []string
		if i%3 == 0 {
			aliases = append(aliases, fmt.Sprintf("WC-%02d", i))
		}

		machine, err := db.CreateMachine(id, name, brand, aliases)
		if err != nil {
			log.Fatalf("Failed to create machine %s: %v", id, err)
		}

		if err := seedHistory(db, machine, today, *historyDays); err != nil {
			log.Fatalf("Failed to seed history for machine %s: %v", id, err)
		}
	}
	log.Printf("Created %d machines with %d days of history", *machineCount, *historyDays)

	// Пара сохраненных соответствий, как будто оператор уже правил их
	if err := db.SaveWorkCenterMapping("TEL-01", "1"); err != nil {
		log.Fatalf("Failed to save mapping: %v", err)
	}
	if err := db.SaveWorkCenterMapping("Telar 2 (nave B)", "2"); err != nil {
		log.Fatalf("Failed to save mapping: %v", err)
	}

	log.Printf("Seed completed: %s", *dbPath)
}

// seedHistory генерирует историю журналов и применяет ее пакетом записи
func seedHistory(db *database.PlantDB, machine *database.Machine, today time.Time, days int) error {
	client := gofakeit.Company()
	fabric := fabricNames[gofakeit.Number(0, len(fabricNames)-1)]
	remaining := float64(gofakeit.Number(300, 2000))

	logs := make([]database.DailyLog, 0, days)
	batch := database.NewWriteBatch()

	for d := days; d >= 1; d-- {
		date := today.AddDate(0, 0, -d).Format(database.DateLayout)

		status := database.StatusWorking
		production := float64(gofakeit.Number(50, 250))
		if gofakeit.Number(0, 9) == 0 {
			status = database.StatusNoOrder
			production = 0
		}

		scrap := float64(gofakeit.Number(0, 15))
		net := production - scrap
		if net < 0 {
			net = 0
		}
		remaining -= net
		if remaining < 0 {
			remaining = 0
		}

		entry := database.DailyLog{
			Date:       date,
			Status:     status,
			Fabric:     fabric,
			Client:     normalization.CanonicalClientName(client),
			Production: production,
			Scrap:      scrap,
			Remaining:  remaining,
		}
		logs = append(logs, entry)
		batch.Add(database.OpUpsertProductionLog(machine.ID, entry))
	}

	logsOp, err := database.OpReplaceMachineLogs(machine.ID, logs)
	if err != nil {
		return err
	}
	batch.Add(logsOp)

	last := logs[len(logs)-1]
	batch.Add(database.OpUpdateMachineCurrentState(machine.ID, database.MachineState{
		Status:    last.Status,
		Client:    last.Client,
		Fabric:    last.Fabric,
		Remaining: last.Remaining,
	}))

	return db.SubmitBatches(batch)
}
